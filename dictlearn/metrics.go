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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelSolver = "solver"
	LabelMode   = "mode"
	LabelResult = "result"
)

var (
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "decomp",
		Subsystem: "dictlearn",
		Name:      "iterations_total",
	})
	DictionaryDelta = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "decomp",
		Subsystem: "dictlearn",
		Name:      "dictionary_delta",
	})
	FitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "decomp",
		Subsystem: "dictlearn",
		Name:      "fit_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	FitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "decomp",
		Subsystem: "dictlearn",
		Name:      "fits_total",
	}, []string{LabelSolver, LabelMode, LabelResult})
)
