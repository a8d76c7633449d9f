// Package testutil provides testing utilities for tilehal.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic generation of float32 matrices for
// exercising the tile codec and transfer paths.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	data := make([]float32, 128*256)
//	rng.FillUniform(data)            // uniform [0, 1)
//	rng.FillUniformRange(data, -1, 1)
//
// # Deterministic Patterns
//
//	testutil.FillRamp(data)          // data[i] = i
package testutil
