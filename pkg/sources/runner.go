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

// Package sources holds the site adapters and the pipeline runner.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/diag"
	"marketgrab/pkg/extract"
	"marketgrab/pkg/fetcher"
	"marketgrab/pkg/metrics"
	"marketgrab/pkg/models"
	"marketgrab/pkg/normalize"
)

// channelState is the adapter-level retry/fallback state machine. It sits
// on top of the transport's own retry policy.
type channelState int

const (
	tryPrimaryChannel channelState = iota
	trySecondaryChannel
	exhausted
)

// next advances the state machine.
func (s channelState) next() channelState {
	switch s {
	case tryPrimaryChannel:
		return trySecondaryChannel
	default:
		return exhausted
	}
}

// index maps a state to the adapter's channel slot.
func (s channelState) index() int {
	return int(s)
}

// ErrEmptyQuery is returned when the caller supplies a blank query term.
var ErrEmptyQuery = errors.New("query term must not be empty")

// Runner drives one adapter through fetch, extract and normalize. Each
// Runner owns its transport session; concurrent searches get their own
// Runner and never share state.
type Runner struct {
	session *fetcher.Session
	sink    diag.Sink
	warmed  bool
}

// NewRunner creates a runner over the given session. The diagnostics sink
// receives every stage-transition event; pass nil to discard them.
func NewRunner(session *fetcher.Session, sink diag.Sink) *Runner {
	return &Runner{session: session, sink: sink}
}

// Search runs the full pipeline for one query: channel by channel until one
// yields records, then normalization. Exhausting every channel returns an
// empty batch and a nil error; an error is only returned for cancellation
// or an unusable query.
func (r *Runner) Search(ctx context.Context, ad Adapter, term, location string, limit int) (*models.Batch, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	runID := uuid.NewString()
	channels := ad.Channels()

	if w, ok := ad.(SessionWarmer); ok && !r.warmed {
		if _, err := r.session.Execute(ctx, w.WarmupRequest()); err != nil {
			cmn.DebugMsg(cmn.DbgLvlWarn, "session warm-up for %s failed: %v", ad.Name(), err)
		}
		r.warmed = true
	}

	for state := tryPrimaryChannel; state != exhausted; state = state.next() {
		idx := state.index()
		if idx >= len(channels) {
			break
		}
		ch := channels[idx]

		if state != tryPrimaryChannel {
			metrics.ChannelSwitches.WithLabelValues(ad.Name()).Inc()
			r.emit(runID, ad.Name(), "fetch", diag.KindChannelSwitch,
				fmt.Sprintf("%q -> %q", channels[idx-1].Name, ch.Name))
		}

		records, err := r.runChannel(ctx, ad, ch, term, location, runID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, err
			}
			cmn.DebugMsg(cmn.DbgLvlWarn, "%s channel %q failed: %v", ad.Name(), ch.Name, err)
			r.emit(runID, ad.Name(), "fetch", diag.KindChannelExhausted,
				fmt.Sprintf("channel %q failed: %v", ch.Name, err))
		case len(records) == 0:
			r.emit(runID, ad.Name(), "extract", diag.KindChannelExhausted,
				fmt.Sprintf("channel %q yielded nothing", ch.Name))
		default:
			return r.normalizeBatch(ad, term, records, limit, runID), nil
		}
	}

	// all channels exhausted: an empty result set, not an error
	return &models.Batch{}, nil
}

// runChannel fetches one channel and runs its strategies. A soft block
// triggers exactly one session re-initialization with the longer wait;
// a second soft block fails the channel.
func (r *Runner) runChannel(ctx context.Context, ad Adapter, ch Channel, term, location, runID string) ([]extract.RawRecord, error) {
	req, err := ch.Build(term, location)
	if err != nil {
		return nil, err
	}

	res, err := r.session.Execute(ctx, req)
	if err != nil {
		// a hard error status may still carry a usable body; try
		// diagnostic extraction before giving up on the channel
		var fe *fetcher.Error
		if errors.As(err, &fe) && fe.Result != nil && len(fe.Result.Body) > 0 {
			if doc, perr := extract.ParseDocument(fe.Result.Text()); perr == nil {
				if records := extract.Run(doc, term, ch.Strategies, r.sink, runID, ad.Name()); len(records) > 0 {
					cmn.DebugMsg(cmn.DbgLvlWarn, "%s channel %q: extracted %d record(s) from status %d response",
						ad.Name(), ch.Name, len(records), fe.StatusCode)
					return records, nil
				}
			}
		}
		return nil, err
	}

	if res.SoftBlocked() {
		r.emit(runID, ad.Name(), "fetch", diag.KindSessionReset,
			fmt.Sprintf("soft block (status %d) on channel %q", res.StatusCode, ch.Name))
		if err := r.session.Reset(ctx, ad.BaseURL()); err != nil {
			return nil, err
		}
		if err := waitCtx(ctx, r.session.SoftBlockWait()); err != nil {
			return nil, err
		}
		res, err = r.session.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.SoftBlocked() {
			return nil, fmt.Errorf("soft block persisted on channel %q", ch.Name)
		}
	}

	doc, err := extract.ParseDocument(res.Text())
	if err != nil {
		return nil, err
	}
	return extract.Run(doc, term, ch.Strategies, r.sink, runID, ad.Name()), nil
}

// normalizeBatch converts raw records into the canonical batch, dropping
// (and reporting) the ones validation rejects.
func (r *Runner) normalizeBatch(ad Adapter, term string, records []extract.RawRecord, limit int, runID string) *models.Batch {
	batch := &models.Batch{}
	searchURL := ad.SearchURL(term)

	for _, raw := range records {
		if limit > 0 && batch.Len() >= limit {
			break
		}
		switch ad.Kind() {
		case KindListing:
			p, err := normalize.Product(raw, ad.Name(), searchURL)
			if err != nil {
				r.reject(runID, ad.Name(), err)
				continue
			}
			batch.Products = append(batch.Products, *p)
		case KindPlace:
			pl, err := normalize.Place(raw, ad.Name())
			if err != nil {
				r.reject(runID, ad.Name(), err)
				continue
			}
			batch.Places = append(batch.Places, *pl)
		}
		metrics.RecordsExtracted.WithLabelValues(ad.Name()).Inc()
	}
	return batch
}

// Detail deep-fetches one record's detail page and returns the raw detail
// record, to be merged into the canonical record by the caller (see
// normalize.MergeProductDetails / MergePlaceDetails).
func (r *Runner) Detail(ctx context.Context, ad Adapter, recordURL string) (extract.RawRecord, error) {
	df, ok := ad.(DetailFetcher)
	if !ok {
		return nil, ErrNoDetail
	}
	req, err := df.BuildDetailQuery(recordURL)
	if err != nil {
		return nil, err
	}
	res, err := r.session.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := extract.ParseDocument(res.Text())
	if err != nil {
		return nil, err
	}
	records := extract.Run(doc, "", df.DetailStrategies(), r.sink, uuid.NewString(), ad.Name())
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (r *Runner) reject(runID, source string, err error) {
	metrics.RecordsRejected.WithLabelValues(source).Inc()
	cmn.DebugMsg(cmn.DbgLvlDebug, "%s: %v", source, err)
	r.emit(runID, source, "normalize", diag.KindRecordRejected, err.Error())
}

func (r *Runner) emit(runID, source, stage string, kind diag.Kind, detail string) {
	if r.sink == nil {
		return
	}
	r.sink.Emit(diag.Stamp(diag.Event{
		RunID:  runID,
		Source: source,
		Stage:  stage,
		Kind:   kind,
		Detail: detail,
	}))
}

// waitCtx blocks for d unless the context is cancelled first.
func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
