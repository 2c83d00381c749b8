// Package harness runs declarative end-to-end pipeline scenarios.
//
// A scenario describes a tiny input tree of frames and sparse model grids in
// YAML. The harness writes the grids to a temporary directory, runs the frame
// processor over it with the scenario's settings, records the run in an
// in-memory ledger and then checks the exported volumes.
//
// # Scenario Format
//
//	name: two_model_union
//	description: "Two overlapping models composite with union"
//	settings:
//	  merge: union
//	frames:
//	  - name: "0001"
//	    models:
//	      - file: foo-1,0,0,1.vdb
//	        voxels:
//	          - [0, 0, 0, 0.5]
//	    extra_files:
//	      - name: notes-1,1,1,1.vdb
//	        content: "not a grid"
//	assertions:
//	  - type: file_bytes
//	    path: 0001/alpha1,1,1.raw
//	    bytes: [51]
//	  - type: summary
//	    expect: { frames: 1, files: 4 }
//
// Voxels are [x, y, z, value]. Settings use the same keys as the voxraw
// config file and go through the same schema validation.
//
// # Assertion Types
//
//   - file_count: the number of exported files
//   - file_exists: an output path, relative to the output root, was written
//   - file_bytes: an output file has exactly the listed byte values
//   - summary: a subset of the run summary counters
//   - recorded_outputs: the number of outputs the ledger holds for the run
//
// # Golden Files
//
// RunWithGolden dumps every exported file as hex and compares the dump
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
