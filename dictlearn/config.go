// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dictlearn

import (
	"time"

	"github.com/gorse-io/decomp/lasso"
	"github.com/juju/errors"
)

// FitConfig holds the options of a dictionary learning run.
type FitConfig struct {
	// Tol stops the run once no dictionary entry moves by Tol or more. It
	// is also the tolerance of the sparse-code solver.
	Tol              float64
	MinibatchSize    int
	MaxIterations    int
	Solver           string
	SolverIterations int
	Seed             int64
	// Verbose logs every Verbose iterations. Zero disables iteration logs.
	Verbose int
	// OnIteration is called after every committed iteration.
	OnIteration func(iteration int, delta float64)
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Tol:              1e-3,
		MinibatchSize:    1,
		MaxIterations:    1000,
		Solver:           lasso.ISTA,
		SolverIterations: 10,
		Seed:             time.Now().UnixNano(),
		Verbose:          100,
	}
}

func (config *FitConfig) SetTol(tol float64) *FitConfig {
	config.Tol = tol
	return config
}

func (config *FitConfig) SetMinibatchSize(size int) *FitConfig {
	config.MinibatchSize = size
	return config
}

func (config *FitConfig) SetMaxIterations(n int) *FitConfig {
	config.MaxIterations = n
	return config
}

func (config *FitConfig) SetSolver(solver string) *FitConfig {
	config.Solver = solver
	return config
}

func (config *FitConfig) SetSolverIterations(n int) *FitConfig {
	config.SolverIterations = n
	return config
}

func (config *FitConfig) SetSeed(seed int64) *FitConfig {
	config.Seed = seed
	return config
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetOnIteration(callback func(iteration int, delta float64)) *FitConfig {
	config.OnIteration = callback
	return config
}

// Validate checks the options. An unknown solver is reported as
// ErrUnsupportedMethod.
func (config *FitConfig) Validate() error {
	if err := lasso.Validate(config.Solver); err != nil {
		return errors.Trace(err)
	}
	if config.Tol < 0 {
		return errors.NotValidf("tol %v", config.Tol)
	}
	if config.MinibatchSize < 1 {
		return errors.NotValidf("minibatch size %v", config.MinibatchSize)
	}
	if config.MaxIterations < 1 {
		return errors.NotValidf("max iterations %v", config.MaxIterations)
	}
	if config.SolverIterations < 1 {
		return errors.NotValidf("solver iterations %v", config.SolverIterations)
	}
	return nil
}
