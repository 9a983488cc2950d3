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

// Package extract implements the multi-strategy extraction pipeline: ordered
// candidate strategies are tried against a fetched document until one yields
// plausible records.
package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is the untyped key/value mapping a strategy produces. It is
// transient: normalization consumes it, it is never persisted.
type RawRecord map[string]interface{}

// String returns the trimmed string value under key, coercing scalars.
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// Float returns the float value under key; strings are parsed after comma
// normalization. Untypable values come back as 0.
func (r RawRecord) Float(key string) float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int returns the integer value under key. Untypable values come back as 0.
func (r RawRecord) Int(key string) int {
	v, ok := r[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the boolean value under key, false when absent or untypable.
func (r RawRecord) Bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// StringSlice returns the list value under key. A bare string becomes a
// one-element list; absent or untypable values come back empty.
func (r RawRecord) StringSlice(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	case []interface{}:
		var out []string
		for _, item := range t {
			s := strings.TrimSpace(fmt.Sprintf("%v", item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// StringMap returns the string-to-string mapping under key, empty when
// absent or untypable.
func (r RawRecord) StringMap(key string) map[string]string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]string:
		return t
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, item := range t {
			out[k] = strings.TrimSpace(fmt.Sprintf("%v", item))
		}
		return out
	default:
		return nil
	}
}

// Strategy is one ordered, named extraction procedure. Extract is a pure
// function of the document and the original query: no shared state, no
// randomness, no clock. It returns zero records on malformed input instead
// of failing.
type Strategy struct {
	Name    string
	Extract func(doc *Document, query string) []RawRecord
}
