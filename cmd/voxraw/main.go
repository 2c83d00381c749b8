// Command voxraw converts per-frame sparse density grids into dense 8-bit
// raw channel volumes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/voxraw/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "voxraw:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
