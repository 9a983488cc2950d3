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
// This file holds the numeric heuristics shared across site adapters.
// They are explicit policies: same input, same output, always.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceGuessedKey flags a raw record whose price came from the
// largest-number fallback instead of a price-labelled element.
const PriceGuessedKey = "price_guessed"

// CleanPrice turns currency text into a non-negative float. Digits are
// kept, group separators (spaces, including NBSP) are dropped, a decimal
// comma becomes a dot. "1 299 ₽" -> 1299.0, "199,90" -> 199.9.
// Unparseable text yields 0.
func CleanPrice(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune('.')
		default:
			// spaces, currency signs, letters: group separators or noise
		}
	}
	s := b.String()
	if s == "" {
		return 0
	}

	// with more than one dot, everything but the last is a group separator
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

var numberGroupPattern = regexp.MustCompile(`\d[\d\s\x{00a0},]*`)

// LargestNumber scans arbitrary text for the largest number above the
// plausibility threshold. This is the deliberate last-resort price policy:
// callers must flag records priced this way (see PriceGuessedKey) so a
// misfire (e.g. a review count picked instead of a price) stays visible.
func LargestNumber(text string, min float64) (float64, bool) {
	var best float64
	found := false
	for _, group := range numberGroupPattern.FindAllString(text, -1) {
		var digits strings.Builder
		for _, r := range group {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		n, err := strconv.ParseFloat(digits.String(), 64)
		if err != nil {
			continue
		}
		if n > min && n > best {
			best = n
			found = true
		}
	}
	return best, found
}

// CountFromText extracts a non-negative integer from count text like
// "(1 234)" or "567 отзывов". Everything but digits is dropped.
func CountFromText(text string) int {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

var ratingPattern = regexp.MustCompile(`\d+[.,]?\d*`)

// RatingFromText extracts the first decimal number from rating text,
// normalizing a decimal comma. "4,7 из 5" -> 4.7. Unparseable text yields 0.
func RatingFromText(text string) float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return f
}

// idPatterns are the URL shapes sources embed record identifiers in,
// most specific first.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/product/(\d+)`),
	regexp.MustCompile(`/catalog/(\d+)`),
	regexp.MustCompile(`/item/(\d+)`),
	regexp.MustCompile(`/p/(\d+)`),
	regexp.MustCompile(`[?&]id=(\d+)`),
	regexp.MustCompile(`/(\d+)(?:/|$)`),
}

// IDFromURL extracts a numeric record identifier from a record URL,
// or "" when none of the known URL shapes match.
func IDFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}
