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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/gorse-io/decomp/lasso"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFile(t *testing.T) {
	config, err := LoadConfig("config.toml")
	assert.NoError(t, err)

	// [fit]
	assert.Equal(t, 1.0, config.Fit.Alpha)
	assert.Equal(t, 1e-3, config.Fit.Tol)
	assert.Equal(t, 1, config.Fit.MinibatchSize)
	assert.Equal(t, 1000, config.Fit.MaxIterations)
	assert.Equal(t, lasso.ISTA, config.Fit.Solver)
	assert.Equal(t, 10, config.Fit.SolverIterations)
	assert.Equal(t, int64(0), config.Fit.Seed)
	assert.Equal(t, 100, config.Fit.Verbose)
	assert.Equal(t, time.Duration(0), config.Fit.Timeout)
	// [data]
	assert.Equal(t, "observations.csv", config.Data.Observations)
	assert.Equal(t, 8, config.Data.Atoms)
	assert.False(t, config.Data.Complex)
	assert.Equal(t, "dictionary.csv", config.Data.Output)
	// [backend]
	assert.Equal(t, "cpu", config.Backend.Device)
	assert.Equal(t, 0, config.Backend.Jobs)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
fit:
  alpha: 0.5
  solver: fista
  timeout: 90s
data:
  sqlite: observations.db
  table: samples
  columns: [a, b, c]
  dictionary: d.csv
backend:
  device: parallel
  jobs: 4
`), 0o644)
	assert.NoError(t, err)
	config, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, 0.5, config.Fit.Alpha)
	assert.Equal(t, lasso.FISTA, config.Fit.Solver)
	assert.Equal(t, 90*time.Second, config.Fit.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, config.Data.Columns)
	assert.Equal(t, "parallel", config.Backend.Device)
	assert.Equal(t, 4, config.Backend.Jobs)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("DECOMP_FIT_ALPHA", "0.25")
	t.Setenv("DECOMP_FIT_SOLVER", "fista")
	t.Setenv("DECOMP_FIT_TIMEOUT", "2m")
	t.Setenv("DECOMP_DATA_OBSERVATIONS", "y.csv")
	t.Setenv("DECOMP_DATA_ATOMS", "3")
	t.Setenv("DECOMP_DATA_COLUMNS", "x,y")
	t.Setenv("DECOMP_BACKEND_DEVICE", "parallel")
	config, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, 0.25, config.Fit.Alpha)
	assert.Equal(t, lasso.FISTA, config.Fit.Solver)
	assert.Equal(t, 2*time.Minute, config.Fit.Timeout)
	assert.Equal(t, "y.csv", config.Data.Observations)
	assert.Equal(t, 3, config.Data.Atoms)
	assert.Equal(t, []string{"x", "y"}, config.Data.Columns)
	assert.Equal(t, "parallel", config.Backend.Device)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config := GetDefaultConfig()
		config.Data.Observations = "y.csv"
		config.Data.Atoms = 4
		return config
	}
	assert.NoError(t, valid().Validate())

	// no observations
	config := GetDefaultConfig()
	config.Data.Atoms = 4
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	// no dictionary
	config = valid()
	config.Data.Atoms = 0
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	// SQLite without table
	config = valid()
	config.Data.SQLite = "y.db"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = valid()
	config.Fit.Alpha = 0
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	config = valid()
	config.Fit.Solver = "lars"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	config = valid()
	config.Fit.MinibatchSize = 0
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	config = valid()
	config.Backend.Device = "gpu"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("[fit]\nalpha = -1\n[data]\nobservations = \"y.csv\"\natoms = 2\n"), 0o644))
	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestFitConfig(t *testing.T) {
	config := GetDefaultConfig()
	config.Fit.Tol = 1e-5
	config.Fit.MinibatchSize = 8
	config.Fit.MaxIterations = 50
	config.Fit.Solver = lasso.FISTA
	config.Fit.SolverIterations = 20
	config.Fit.Seed = 7
	config.Fit.Verbose = 0
	fitConfig := config.FitConfig()
	assert.Equal(t, 1e-5, fitConfig.Tol)
	assert.Equal(t, 8, fitConfig.MinibatchSize)
	assert.Equal(t, 50, fitConfig.MaxIterations)
	assert.Equal(t, lasso.FISTA, fitConfig.Solver)
	assert.Equal(t, 20, fitConfig.SolverIterations)
	assert.Equal(t, int64(7), fitConfig.Seed)
	assert.Equal(t, 0, fitConfig.Verbose)
	assert.NoError(t, fitConfig.Validate())
}
