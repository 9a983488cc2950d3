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

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownSource(t *testing.T) {
	for _, tag := range []string{
		SourceWildberries, SourceOzon, SourceUzum,
		SourceTwoGIS, SourceYandexMaps, SourceGoogleMaps,
	} {
		assert.True(t, KnownSource(tag), "tag %q should be known", tag)
	}
	assert.False(t, KnownSource("amazon"))
	assert.False(t, KnownSource(""))
	assert.False(t, KnownSource("Wildberries"), "tags are case-sensitive")
}

func TestBatchLen(t *testing.T) {
	var nilBatch *Batch
	assert.Equal(t, 0, nilBatch.Len())
	assert.Equal(t, 0, (&Batch{}).Len())
	assert.Equal(t, 2, (&Batch{Products: []Product{{}, {}}}).Len())
	assert.Equal(t, 3, (&Batch{Places: []Place{{}, {}, {}}}).Len())
}

func TestProductJSONShape(t *testing.T) {
	p := Product{
		Name:         "Thing",
		Price:        10,
		URL:          "https://example.com/p/1",
		SyntheticURL: true,
		PriceGuessed: true,
		Source:       SourceUzum,
	}
	data, err := json.Marshal(p)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"url_synthetic":true`)
	assert.Contains(t, string(data), `"price_guessed":true`)
	assert.NotContains(t, string(data), `"brand"`, "empty optional fields are omitted")
}
