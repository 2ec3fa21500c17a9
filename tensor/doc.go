// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types of blocks.
//
// # Overview
//
// Tensors carry the data that flows through blocks and the storage of every
// parameter replica. This package provides:
//   - Generic type-safe tensors (Tensor[T, B]) over a compute Backend
//   - Shapes with unknown (0) dimensions for lazily inferred parameters
//   - Contexts naming the compute target a replica lives on
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/blocks/backend/cpu"
//	    "github.com/born-ml/blocks/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    centered := x.Sub(x.Mean())
//	}
//
// # Shapes
//
// A Shape dimension of 0 means "not known yet". Parameters may be declared
// with such a shape; Shape.Fill and Shape.Compatible merge partial shapes
// once a forward pass reveals the missing dimensions.
//
// # Contexts
//
// A Context is a device kind plus an ordinal, written "cpu(0)". A parameter
// keeps one replica per context it was initialized on.
package tensor
