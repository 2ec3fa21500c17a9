// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides blocks, lazily-shaped parameters and the registries
// that hold them.
//
// # Overview
//
// This package contains:
//   - Parameter: a named weight whose shape may be partly unknown, with one
//     replica and gradient accumulator per context
//   - ParameterDict: an insertion-ordered registry of parameters under a prefix
//   - Block: the interface of a computation with parameters and children
//   - Layers: Dense, Centered, Sequential
//   - Initializers: Uniform, Normal, Xavier, Constant
//   - SoftmaxCrossEntropyLoss and the Accuracy metric
//
// # Basic Usage
//
//	backend := autodiff.New(cpu.New())
//
//	net := nn.NewSequential(backend)
//	net.Add(
//	    nn.NewDense(128, 0, backend, nn.WithScope(net.Scope())),
//	    nn.NewDense(10, 0, backend, nn.WithScope(net.Scope()), nn.WithActivation(nn.ActivationNone)),
//	)
//	err := nn.InitializeAll(net, nn.DefaultXavier(), nn.InitConfig{Seed: 1})
//	out, err := net.Forward(tensor.CPUContext(0), x) // input width inferred from x
//
// # Custom Blocks
//
// Embed *BlockBase, declare parameters through its ParameterDict and
// implement Forward:
//
//	type Scale[B tensor.Backend] struct {
//	    *nn.BlockBase[B]
//	    factor *nn.Parameter[B]
//	}
//
//	func NewScale[B tensor.Backend](backend B, opts ...nn.BlockOption) *Scale[B] {
//	    base := nn.NewBlockBase("scale", backend, opts...)
//	    factor, _ := base.Params().Get("factor", nn.WithShape(1), nn.WithInit(nn.One()))
//	    return &Scale[B]{BlockBase: base, factor: factor}
//	}
//
// # Naming
//
// Every block draws a prefix such as "dense0_" from its parent's Scope; a
// parameter's name is the prefix plus its local name. Collecting the
// parameters of a tree fails with ErrNameCollision if two different
// parameters end up with the same name.
package nn
