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

// Package common provides common utilities and functions used across the application.
package common

import (
	"crypto/rand"
	"math/big"
)

// UserAgent represents a user agent string with its relative weight.
type UserAgent struct {
	// Type identifies the type of user agent ("desktop" or "mobile")
	Type string
	// UA is the user agent string
	UA string
	// PCT is the weight of the user agent within its type
	PCT float64
}

// userAgentsDB is the built-in user agents pool. Weights roughly follow
// observed browser market shares, they only need to be proportional.
var userAgentsDB = []UserAgent{
	{Type: "desktop", UA: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36", PCT: 40.0},
	{Type: "desktop", UA: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36", PCT: 20.0},
	{Type: "desktop", UA: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36", PCT: 12.0},
	{Type: "desktop", UA: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36", PCT: 8.0},
	{Type: "desktop", UA: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0", PCT: 10.0},
	{Type: "desktop", UA: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15", PCT: 10.0},
	{Type: "mobile", UA: "Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36", PCT: 55.0},
	{Type: "mobile", UA: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1", PCT: 45.0},
}

// PickUserAgent returns a randomly selected user agent string of the given
// type ("desktop" or "mobile"), weighted by PCT. An unknown type falls back
// to the desktop pool.
func PickUserAgent(uaType string) string {
	var pool []UserAgent
	for _, ua := range userAgentsDB {
		if ua.Type == uaType {
			pool = append(pool, ua)
		}
	}
	if len(pool) == 0 {
		return PickUserAgent("desktop")
	}

	var total float64
	for _, ua := range pool {
		total += ua.PCT
	}

	// crypto/rand keeps picks uniform across processes, no seeding needed
	n, err := rand.Int(rand.Reader, big.NewInt(int64(total*100)))
	if err != nil {
		return pool[0].UA
	}
	target := float64(n.Int64()) / 100

	var acc float64
	for _, ua := range pool {
		acc += ua.PCT
		if target < acc {
			return ua.UA
		}
	}
	return pool[len(pool)-1].UA
}
