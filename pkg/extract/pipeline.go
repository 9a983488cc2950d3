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

// Package extract implements the multi-strategy extraction pipeline.
package extract

import (
	"fmt"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/diag"
)

// Run tries the strategies in declared order against the document and
// returns the output of the first one that yields at least one record.
// Later strategies are never attempted, let alone merged in. A full miss
// returns nil.
func Run(doc *Document, query string, strategies []Strategy, sink diag.Sink, runID, source string) []RawRecord {
	for _, st := range strategies {
		records := safeExtract(st, doc, query)
		if len(records) > 0 {
			if sink != nil {
				sink.Emit(diag.Stamp(diag.Event{
					RunID:  runID,
					Source: source,
					Stage:  "extract",
					Kind:   diag.KindStrategyHit,
					Detail: fmt.Sprintf("strategy %q yielded %d record(s)", st.Name, len(records)),
				}))
			}
			return records
		}
		if sink != nil {
			sink.Emit(diag.Stamp(diag.Event{
				RunID:  runID,
				Source: source,
				Stage:  "extract",
				Kind:   diag.KindStrategyMiss,
				Detail: fmt.Sprintf("strategy %q yielded nothing", st.Name),
			}))
		}
	}
	return nil
}

// safeExtract enforces the "a strategy never raises" invariant: a panicking
// strategy is treated as a miss.
func safeExtract(st Strategy, doc *Document, query string) (records []RawRecord) {
	defer func() {
		if r := recover(); r != nil {
			cmn.DebugMsg(cmn.DbgLvlError, "strategy %q panicked: %v", st.Name, r)
			records = nil
		}
	}()
	return st.Extract(doc, query)
}
