// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers and the Trainer that applies them to a
// ParameterDict.
//
// The Trainer sums each parameter's gradient over its contexts, scales it by
// 1/batchSize, updates the first replica and copies the result to the others.
//
// Example:
//
//	trainer := optim.NewTrainer(params, optim.NewSGD(optim.SGDConfig{LR: 0.1}))
//	for x, y := range loader.Batches() {
//	    // record forward, loss and nn.Backward on each context
//	    if err := trainer.Step(x.Shape()[0]); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"github.com/born-ml/blocks/internal/nn"
	"github.com/born-ml/blocks/internal/optim"
	"github.com/born-ml/blocks/internal/tensor"
)

// Optimizer updates a flat weight vector from its gradient.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	opt := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam is the Adam optimizer with bias correction.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Trainer applies an optimizer to every parameter of a ParameterDict.
type Trainer[B tensor.Backend] = optim.Trainer[B]

// NewTrainer creates a trainer over params.
func NewTrainer[B tensor.Backend](params *nn.ParameterDict[B], opt Optimizer) *Trainer[B] {
	return optim.NewTrainer(params, opt)
}
