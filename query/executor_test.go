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

package query

import (
	"path/filepath"
	"testing"

	"github.com/czcorpus/collexicon/collstore"
	"github.com/czcorpus/collexicon/grammar"
	"github.com/czcorpus/collexicon/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"
)

func testFingerprint() [16]byte {
	id := uuid.New()
	var fp [16]byte
	copy(fp[:], id[:])
	return fp
}

func buildTestStore(t *testing.T, entries []record.CollocationEntry) *collstore.Reader {
	t.Helper()
	fp := testFingerprint()
	path := filepath.Join(t.TempDir(), "store.bin")
	w, err := collstore.Create(path, collstore.BuildParams{
		Window:             5,
		TopK:               10,
		TotalCorpusTokens:  100000,
		LexiconFingerprint: fp,
	})
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Close())
	r, err := collstore.Open(path, fp)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleEntry() record.CollocationEntry {
	return record.CollocationEntry{
		HeadLemma:     "dog",
		HeadTotalFreq: 100,
		Collocates: []record.CollocateRecord{
			{CollLemma: "big", CollPoS: "JJ", Cooccurrence: 20, CollTotalFreq: 40, LogDice: record.RoundedFloat(10.5)},
			{CollLemma: "small", CollPoS: "JJ", Cooccurrence: 15, CollTotalFreq: 30, LogDice: record.RoundedFloat(9.8)},
			{CollLemma: "runs", CollPoS: "VBZ", Cooccurrence: 10, CollTotalFreq: 50, LogDice: record.RoundedFloat(8.0)},
		},
	}
}

func TestLookupReturnsAllWithEmptyPattern(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("dog", "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "big", rows[0].CollLemma)
}

func TestLookupFiltersByPattern(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("dog", `[pos="JJ"]`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "big", rows[0].CollLemma)
	assert.Equal(t, "small", rows[1].CollLemma)
}

func TestLookupMissingHeadReturnsEmpty(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("fox", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupMinLogDiceExceedingTopReturnsEmpty(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("dog", "", WithMinLogDice(100))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupMaxResultsZeroReturnsEmpty(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("dog", "", WithMaxResults(0))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupRunsTwiceReturnsIdenticalResults(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	r1, err := ex.Lookup("dog", `[pos="JJ"]`)
	require.NoError(t, err)
	r2, err := ex.Lookup("dog", `[pos="JJ"]`)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestLookupRelationRequiringWitnessWithoutIndexIsPrecondition(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	_, err := ex.Lookup("dog", "", WithRelation(grammar.RelationAdjPredicate))
	require.Error(t, err)
	var rerr *record.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, record.Precondition, rerr.Kind)
}

func TestLookupRelationWitnessGating(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	idx := NewMockIndex()
	idx.AllowWitness("dog", "be")
	idx.AllowWitness("be", "big")
	ex := NewExecutor(store, grammar.Default(), idx)

	rows, err := ex.Lookup("dog", "", WithRelation(grammar.RelationAdjPredicate))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "big", rows[0].CollLemma)
}

func TestLookupRelationWitnessGatingRejectsPartialChain(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	idx := NewMockIndex()
	idx.AllowWitness("dog", "be")
	// "be" -> "small" is never registered, so the two-hop chain never
	// completes even though the head side witnesses the copula.
	ex := NewExecutor(store, grammar.Default(), idx)

	rows, err := ex.Lookup("dog", "", WithRelation(grammar.RelationAdjPredicate))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRankMeasuresAndRRF(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	rows, err := ex.Lookup("dog", "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, measure := range []string{"tscore", "lmi", "ll", "rrf"} {
		scores := ex.Rank(rows, measure)
		require.Len(t, scores, 3)
		for _, r := range rows {
			_, ok := scores[r.CollLemma]
			assert.True(t, ok, "measure %s missing score for %s", measure, r.CollLemma)
		}
	}

	rrf := ex.Rank(rows, "rrf")
	for _, r := range rows {
		assert.Greater(t, rrf[r.CollLemma], 0.0)
	}
}

func TestLookupUnknownRelationIsInvalidInput(t *testing.T) {
	store := buildTestStore(t, []record.CollocationEntry{sampleEntry()})
	ex := NewExecutor(store, grammar.Default(), nil)

	_, err := ex.Lookup("dog", "", WithRelation(grammar.Relation("Bogus")))
	require.Error(t, err)
	var rerr *record.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, record.InvalidInput, rerr.Kind)
}
