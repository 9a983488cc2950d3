// Copyright 2023 Paolo Fabio Zaino
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diag provides the diagnostics sink the pipeline reports its stage
// transitions to. The sink is injected at construction, so callers (and
// tests) decide where events go.
package diag

import (
	"sync"
	"time"

	cmn "marketgrab/pkg/common"
)

// Kind classifies a pipeline event.
type Kind string

const (
	// KindChannelSwitch is emitted when the runner falls over from one
	// retrieval channel to the next.
	KindChannelSwitch Kind = "channel_switch"
	// KindChannelExhausted is emitted when a channel produced nothing.
	KindChannelExhausted Kind = "channel_exhausted"
	// KindStrategyMiss is emitted when a strategy yields zero records and
	// the pipeline falls through to the next one.
	KindStrategyMiss Kind = "strategy_miss"
	// KindStrategyHit is emitted for the strategy whose output was taken.
	KindStrategyHit Kind = "strategy_hit"
	// KindSessionReset is emitted when a soft block forces a session
	// re-initialization.
	KindSessionReset Kind = "session_reset"
	// KindRecordRejected is emitted when normalization drops a record.
	KindRecordRejected Kind = "record_rejected"
	// KindStoreFailure is emitted when a persistence write fails.
	KindStoreFailure Kind = "store_failure"
)

// Event is one structured diagnostics event.
type Event struct {
	// RunID ties all events of one search invocation together
	RunID  string
	Source string
	// Stage is the pipeline stage: fetch, extract, normalize or store
	Stage  string
	Kind   Kind
	Detail string
	Time   time.Time
}

// Sink receives pipeline events. Implementations must be safe for use from
// a single pipeline goroutine; they are never shared across runners.
type Sink interface {
	Emit(ev Event)
}

// LogSink forwards every event to the process logger.
type LogSink struct{}

// Emit implements Sink.
func (LogSink) Emit(ev Event) {
	cmn.DebugMsg(cmn.DbgLvlInfo, "[%s] %s/%s %s: %s", ev.RunID, ev.Source, ev.Stage, ev.Kind, ev.Detail)
}

// Recorder is a Sink that keeps every event in memory. Used by tests and by
// front ends that render per-run diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events, in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Tee duplicates events to multiple sinks.
type Tee []Sink

// Emit implements Sink.
func (t Tee) Emit(ev Event) {
	for _, s := range t {
		s.Emit(ev)
	}
}

// Stamp fills in the event time if unset and returns the event. Helper for
// emitters so they do not repeat the time.Now dance.
func Stamp(ev Event) Event {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	return ev
}
