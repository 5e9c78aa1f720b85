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

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusRunning     Status = "Running"
	StatusComplete    Status = "Complete"
	StatusInterrupted Status = "Interrupted"
	StatusFailed      Status = "Failed"
)

// Tracer collects the root spans of one process.
type Tracer struct {
	name  string
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(name, total)
	t.spans.Store(span.id, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of root spans ordered by start time.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(_, value any) bool {
		p := value.(*Span).Progress()
		p.Tracer = t.name
		progress = append(progress, p)
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].StartTime.Before(progress[j].StartTime)
	})
	return progress
}

// Span tracks the progress of one task. It is safe for concurrent use.
type Span struct {
	id       string
	name     string
	mu       sync.Mutex
	status   Status
	total    int
	count    int
	err      string
	start    time.Time
	finish   time.Time
	children sync.Map
}

func newSpan(name string, total int) *Span {
	return &Span{
		id:     uuid.NewString(),
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count += n
}

// End marks the span complete.
func (s *Span) End() {
	s.finishWith(StatusComplete, "")
}

// Interrupt marks the span stopped early without error.
func (s *Span) Interrupt() {
	s.finishWith(StatusInterrupted, "")
}

func (s *Span) Fail(err error) {
	s.finishWith(StatusFailed, err.Error())
}

func (s *Span) finishWith(status Status, err string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
	s.finish = time.Now()
	if status == StatusComplete {
		s.count = s.total
	}
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Span) Progress() Progress {
	s.mu.Lock()
	p := Progress{
		Name:       s.name,
		Status:     s.status,
		Error:      s.err,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	s.mu.Unlock()
	s.children.Range(func(_, value any) bool {
		p.Children = append(p.Children, value.(*Span).Progress())
		return true
	})
	sort.Slice(p.Children, func(i, j int) bool {
		return p.Children[i].StartTime.Before(p.Children[j].StartTime)
	})
	return p
}

// Start creates a span under the span carried by ctx. Without a parent the
// span is detached and only reachable through the returned pointer.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	childSpan := newSpan(name, total)
	if ctx == nil {
		return nil, childSpan
	}
	span, ok := ctx.Value(spanKeyName).(*Span)
	if ok {
		span.children.Store(childSpan.id, childSpan)
	}
	return context.WithValue(ctx, spanKeyName, childSpan), childSpan
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
	Children   []Progress
}
