// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
//                Faculty of Arts, Charles University
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

package record

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
)

// RoundedFloat rounds to 3 decimals on JSON encoding.
type RoundedFloat float64

func (f RoundedFloat) MarshalJSON() ([]byte, error) {
	rounded := math.Round(float64(f)*1000) / 1000
	return fmt.Appendf(nil, "%v", rounded), nil
}

// CollocateRecord is one row of a CollocationEntry's collocate list:
// `(coll_lemma, coll_pos, cooccurrence, coll_total_freq, logDice)`.
type CollocateRecord struct {
	CollLemma     string       `json:"collLemma"`
	CollPoS       string       `json:"collPos"`
	Cooccurrence  uint64       `json:"cooccurrence"`
	CollTotalFreq uint64       `json:"collTotalFreq"`
	LogDice       RoundedFloat `json:"logDice"`
	RelativeFreq  RoundedFloat `json:"relativeFreq"`
}

// Hash identifies a collocate row independent of its score, used by
// query.Executor's RRF fusion path to join the same collocate across
// the differently-sorted per-measure rankings it feeds into
// merge.RRF.
func (c CollocateRecord) Hash() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s", c.CollLemma, c.CollPoS)
	return hex.EncodeToString(h.Sum(nil))
}

// CollocationEntry is one head's row in the store: its total
// frequency plus its top-K collocates, sorted descending by logDice,
// ties broken by coll_lemma ascending.
type CollocationEntry struct {
	HeadLemma     string            `json:"headLemma"`
	HeadTotalFreq uint64            `json:"headTotalFreq"`
	Collocates    []CollocateRecord `json:"collocates"`
}

func (e CollocationEntry) IsEmpty() bool {
	return len(e.Collocates) == 0
}
