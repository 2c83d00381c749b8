// Package filter implements separable convolution over sparse grids and the
// difference-of-Gaussians band-pass built on it.
package filter

import (
	"gonum.org/v1/gonum/floats"
)

// Kernel is an odd-length 1D convolution kernel. Index 0 weights the voxel at
// offset -Radius() from the target.
type Kernel []float64

// Radius returns floor(len(k)/2).
func (k Kernel) Radius() int {
	return len(k) / 2
}

// Sum returns the sum of the weights.
func (k Kernel) Sum() float64 {
	return floats.Sum(k)
}

// Float32 returns the weights narrowed to float32, the precision taps are
// applied at.
func (k Kernel) Float32() []float32 {
	out := make([]float32, len(k))
	for i, v := range k {
		out[i] = float32(v)
	}
	return out
}

// Symmetric reports whether k[i] == k[len-1-i] for every i.
func (k Kernel) Symmetric() bool {
	for i, j := 0, len(k)-1; i < j; i, j = i+1, j-1 {
		if k[i] != k[j] {
			return false
		}
	}
	return true
}

// SmallGauss is a 5-tap normalized Gaussian approximation.
var SmallGauss = Kernel{
	0.15338835280702454,
	0.22146110682534667,
	0.2503010807352574,
	0.22146110682534667,
	0.15338835280702454,
}

// BigGauss is an 11-tap normalized Gaussian approximation.
var BigGauss = Kernel{
	0.009300040045324049,
	0.028001560233780885,
	0.06598396774984912,
	0.12170274650962626,
	0.17571363439579307,
	0.19859610213125314,
	0.17571363439579307,
	0.12170274650962626,
	0.06598396774984912,
	0.028001560233780885,
	0.009300040045324049,
}
