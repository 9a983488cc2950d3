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

// Package metrics exposes the process-wide Prometheus counters for the
// fetch-and-extract engine. Counters are registered once at package init;
// whether and where they get scraped is the embedding process's business.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FetchAttempts counts HTTP request attempts, retries included.
	FetchAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketgrab_fetch_attempts_total",
			Help: "Total number of HTTP request attempts, retries included.",
		},
	)

	// FetchRetries counts attempts beyond the first for a single request.
	FetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketgrab_fetch_retries_total",
			Help: "Total number of HTTP retries.",
		},
	)

	// SoftBlocks counts soft-block responses observed.
	SoftBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketgrab_soft_blocks_total",
			Help: "Total number of soft-block (ambiguous rate-limit) responses.",
		},
	)

	// ChannelSwitches counts fallbacks from one retrieval channel to the next.
	ChannelSwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketgrab_channel_switches_total",
			Help: "Total number of retrieval channel fallbacks.",
		},
		[]string{"source"},
	)

	// RecordsExtracted counts records that survived normalization.
	RecordsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketgrab_records_extracted_total",
			Help: "Total number of validated records produced.",
		},
		[]string{"source"},
	)

	// RecordsRejected counts records dropped during normalization.
	RecordsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketgrab_records_rejected_total",
			Help: "Total number of raw records rejected during normalization.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		FetchAttempts,
		FetchRetries,
		SoftBlocks,
		ChannelSwitches,
		RecordsExtracted,
		RecordsRejected,
	)
}
