// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go element-wise kernels with NumPy-compatible broadcasting
//   - gonum BLAS for matrix products
//   - Large element-wise kernels split over goroutines
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/blocks/autodiff"
//	    "github.com/born-ml/blocks/backend/cpu"
//	    "github.com/born-ml/blocks/nn"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    layer := nn.NewDense(128, 0, backend)
//	}
//
// # Thread Safety
//
// Each operation allocates its result and does not share mutable state, so
// the backend may be used from several goroutines. Blocks and parameters are
// not safe for concurrent use.
package cpu
