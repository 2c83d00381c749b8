// Package composite derives per-channel copies of a density grid and folds
// lists of grids into a single grid.
package composite

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownPolicy is returned by PolicyByName for an unregistered name.
var ErrUnknownPolicy = errors.New("unknown merge policy")

// Policy decides the value of a voxel that is active in both the accumulator
// and the next grid. Voxels active in only one operand always keep that
// operand's value.
type Policy interface {
	Name() string
	Merge(acc, next float32) float32
}

type policyFunc struct {
	name  string
	merge func(acc, next float32) float32
}

func (p policyFunc) Name() string                    { return p.name }
func (p policyFunc) Merge(acc, next float32) float32 { return p.merge(acc, next) }

// Built-in policies.
var (
	// Union is CSG union applied to densities: the smaller value wins where
	// both grids are active, as with the level-set union operator.
	Union Policy = policyFunc{"union", func(a, b float32) float32 { return min(a, b) }}

	// Max keeps the larger value.
	Max Policy = policyFunc{"max", func(a, b float32) float32 { return max(a, b) }}

	// Sum accumulates values additively.
	Sum Policy = policyFunc{"sum", func(a, b float32) float32 { return a + b }}

	// First keeps the accumulator's value: the earliest grid in the list wins.
	First Policy = policyFunc{"first", func(a, _ float32) float32 { return a }}
)

var policies = map[string]Policy{
	Union.Name(): Union,
	Max.Name():   Max,
	Sum.Name():   Sum,
	First.Name(): First,
}

// DefaultPolicy is the merge rule used when none is configured.
const DefaultPolicy = "union"

// PolicyByName returns the registered policy called name.
func PolicyByName(name string) (Policy, error) {
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (valid: %v)", ErrUnknownPolicy, name, PolicyNames())
	}
	return p, nil
}

// PolicyNames lists the registered policy names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
