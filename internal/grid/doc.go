// Package grid implements the sparse scalar volume used by every stage of the
// voxraw pipeline.
//
// A Grid maps integer coordinates to float32 values. Coordinates that were
// never set resolve to a single background value shared by the whole grid.
// Each stored coordinate carries an active flag; only active voxels contribute
// to the active bounding box and to iteration.
//
// STORAGE:
//
// Voxels live in 8x8x8 leaf nodes keyed by their origin (the coordinate with
// the low three bits cleared). A leaf stores all 512 values densely plus a
// 512-bit active mask, so a leaf lookup is one map probe followed by array
// indexing. Leaves are never removed once allocated; a leaf whose mask is
// empty is skipped by iteration and bounding-box evaluation.
//
// ACCESSORS:
//
// Accessor and ConstAccessor cache the most recently touched leaf. Stencil
// loops such as the separable convolver hit the same leaf for most taps, which
// turns the map probe into a pointer comparison.
//
// OWNERSHIP:
//
// Grids are not safe for concurrent mutation. Pipeline stages never mutate
// their inputs; they build fresh grids (DeepCopy, Combine) and hand ownership
// to the next stage.
package grid
