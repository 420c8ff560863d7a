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

package merge

import "math"

// LogDice is the store's primary, on-disk association measure. The
// constant 14 is part of the on-disk contract and must not change.
func LogDice(cooccurrence, freqHead, freqColl uint64) float64 {
	return 14.0 + math.Log2(2*float64(cooccurrence)/float64(freqHead+freqColl))
}

// TScore, LMI and LogLikelihood are additional association measures,
// computed on the fly at query time from the same stored
// (cooccurrence, head_total_freq, coll_total_freq) triple, never
// persisted in the store itself.

func TScore(cooccurrence, freqHead, freqColl uint64) float64 {
	expected := float64(freqHead) * float64(freqColl)
	return (float64(cooccurrence) - expected) / math.Sqrt(float64(cooccurrence))
}

func LMI(cooccurrence, freqHead, freqColl, corpusSize uint64) float64 {
	return float64(cooccurrence) * math.Log2(float64(corpusSize)*float64(cooccurrence)/(float64(freqHead)*float64(freqColl)))
}

// LogLikelihood is the standard 2x2 contingency-table log-likelihood
// ratio.
//
//	        | y     | !y    | total
//	   x    | a     | b     | a + b
//	   !x   | c     | d     | c + d
//	        | a+c   | b+d   | n
func LogLikelihood(cooccurrence, freqHead, freqColl, corpusSize uint64) float64 {
	a := float64(cooccurrence)
	b := float64(freqHead) - a
	c := float64(freqColl) - a
	d := float64(corpusSize) - float64(freqHead) - float64(freqColl) + a
	return 2 * (a*math.Log(a) + b*math.Log(b) + c*math.Log(c) + d*math.Log(d) -
		(a+b)*math.Log(a+b) - (a+c)*math.Log(a+c) -
		(b+d)*math.Log(b+d) - (c+d)*math.Log(c+d) +
		(a+b+c+d)*math.Log(a+b+c+d))
}

const rrfConstantD = 60.0

// RRF combines several rank-ordered result lists via Reciprocal Rank
// Fusion (https://plg.uwaterloo.ca/%7Egvcormac/cormacksigir09-rrf.pdf),
// generalized to an arbitrary set of ranked-id slices so any subset of
// the available measures can be fused.
func RRF(rankedIDs [][]string) map[string]float64 {
	scores := make(map[string]float64)
	for _, ranking := range rankedIDs {
		for rank, id := range ranking {
			scores[id] += 1.0 / float64(rrfConstantD+float64(rank))
		}
	}
	return scores
}
