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
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/dictlearn"
	"github.com/gorse-io/decomp/lasso"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of a decomp run.
type Config struct {
	Fit     FitConfig     `mapstructure:"fit"`
	Data    DataConfig    `mapstructure:"data"`
	Backend BackendConfig `mapstructure:"backend"`
}

// FitConfig holds the hyper-parameters of dictionary learning.
type FitConfig struct {
	Alpha            float64       `mapstructure:"alpha" validate:"gt=0"`
	Tol              float64       `mapstructure:"tol" validate:"gte=0"`
	MinibatchSize    int           `mapstructure:"minibatch_size" validate:"gte=1"`
	MaxIterations    int           `mapstructure:"max_iterations" validate:"gte=1"`
	Solver           string        `mapstructure:"solver" validate:"oneof=ista fista"`
	SolverIterations int           `mapstructure:"solver_iterations" validate:"gte=1"`
	Seed             int64         `mapstructure:"seed"`
	Verbose          int           `mapstructure:"verbose" validate:"gte=0"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// DataConfig locates the input and output matrices. Observations come
// either from a CSV file or from a SQLite table.
type DataConfig struct {
	Observations string   `mapstructure:"observations" validate:"required_without=SQLite"`
	Mask         string   `mapstructure:"mask"`
	Dictionary   string   `mapstructure:"dictionary" validate:"required_without=Atoms"`
	Atoms        int      `mapstructure:"atoms" validate:"gte=0"`
	Complex      bool     `mapstructure:"complex"`
	SQLite       string   `mapstructure:"sqlite"`
	Table        string   `mapstructure:"table" validate:"required_with=SQLite"`
	Columns      []string `mapstructure:"columns"`
	MaskTable    string   `mapstructure:"mask_table"`
	Output       string   `mapstructure:"output"`
	Codes        string   `mapstructure:"codes"`
}

type BackendConfig struct {
	Device      string `mapstructure:"device" validate:"oneof=cpu parallel"`
	Jobs        int    `mapstructure:"jobs" validate:"gte=0"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func GetDefaultConfig() *Config {
	defaults := dictlearn.NewFitConfig()
	return &Config{
		Fit: FitConfig{
			Alpha:            1,
			Tol:              defaults.Tol,
			MinibatchSize:    defaults.MinibatchSize,
			MaxIterations:    defaults.MaxIterations,
			Solver:           defaults.Solver,
			SolverIterations: defaults.SolverIterations,
			Verbose:          defaults.Verbose,
		},
		Backend: BackendConfig{
			Device: string(backend.CPU),
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [fit]
	v.SetDefault("fit.alpha", defaultConfig.Fit.Alpha)
	v.SetDefault("fit.tol", defaultConfig.Fit.Tol)
	v.SetDefault("fit.minibatch_size", defaultConfig.Fit.MinibatchSize)
	v.SetDefault("fit.max_iterations", defaultConfig.Fit.MaxIterations)
	v.SetDefault("fit.solver", defaultConfig.Fit.Solver)
	v.SetDefault("fit.solver_iterations", defaultConfig.Fit.SolverIterations)
	v.SetDefault("fit.seed", defaultConfig.Fit.Seed)
	v.SetDefault("fit.verbose", defaultConfig.Fit.Verbose)
	v.SetDefault("fit.timeout", defaultConfig.Fit.Timeout)
	// [data]
	v.SetDefault("data.observations", "")
	v.SetDefault("data.mask", "")
	v.SetDefault("data.dictionary", "")
	v.SetDefault("data.atoms", 0)
	v.SetDefault("data.complex", false)
	v.SetDefault("data.sqlite", "")
	v.SetDefault("data.table", "")
	v.SetDefault("data.columns", []string{})
	v.SetDefault("data.mask_table", "")
	v.SetDefault("data.output", "")
	v.SetDefault("data.codes", "")
	// [backend]
	v.SetDefault("backend.device", defaultConfig.Backend.Device)
	v.SetDefault("backend.jobs", defaultConfig.Backend.Jobs)
	v.SetDefault("backend.metrics_addr", "")
}

// New returns a viper instance with defaults registered and environment
// variables prefixed by DECOMP_ bound, e.g. DECOMP_FIT_ALPHA.
func New() *viper.Viper {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("decomp")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration file at path (TOML or YAML by
// extension) on top of defaults and environment variables. An empty path
// skips the file.
func LoadConfig(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return Unmarshal(v)
}

// Unmarshal decodes and validates the configuration held by v.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Annotatef(errors.NotValid, "invalid config: %v", err)
	}
	if err := lasso.Validate(config.Fit.Solver); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// FitConfig converts the [fit] section into the options of
// dictlearn.Solve. A zero seed is replaced by a time-based one.
func (config *Config) FitConfig() *dictlearn.FitConfig {
	fitConfig := dictlearn.NewFitConfig().
		SetTol(config.Fit.Tol).
		SetMinibatchSize(config.Fit.MinibatchSize).
		SetMaxIterations(config.Fit.MaxIterations).
		SetSolver(config.Fit.Solver).
		SetSolverIterations(config.Fit.SolverIterations).
		SetVerbose(config.Fit.Verbose)
	if config.Fit.Seed != 0 {
		fitConfig.SetSeed(config.Fit.Seed)
	}
	return fitConfig
}
