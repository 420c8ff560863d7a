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

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/czcorpus/collexicon/lexicon"
	"github.com/czcorpus/collexicon/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func writeTestRunFile(t *testing.T, dir, name string, pairs map[record.PairKey]uint32) string {
	t.Helper()
	keys := make([]record.PairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()

	header := make([]byte, record.RunFileHeaderSize)
	record.EncodeRunFileHeader(header, uint64(len(keys)))
	_, err = f.Write(header)
	assert.NoError(t, err)

	buf := make([]byte, record.RunRecordSize)
	for _, k := range keys {
		record.EncodeRunRecord(buf, k, pairs[k])
		_, err = f.Write(buf)
		assert.NoError(t, err)
	}
	return path
}

func buildTestLexicon(t *testing.T, entries map[uint32]lexicon.Entry) *lexicon.Reader {
	t.Helper()
	b := lexicon.NewBuilder()
	for i := uint32(0); i < uint32(len(entries)); i++ {
		e := entries[i]
		id := b.AssignOrGet(e.Lemma)
		assert.Equal(t, i, id)
		for n := uint64(0); n < e.Freq; n++ {
			b.Increment(id, e.DominantPoS, "")
		}
	}
	path := filepath.Join(t.TempDir(), "lex.bin")
	rawFP := uuid.New()
	var fp [16]byte
	copy(fp[:], rawFP[:])
	err := b.Finalize(path, fp)
	assert.NoError(t, err)
	r, err := lexicon.Open(path)
	assert.NoError(t, err)
	return r
}

func TestMergeShardSingleRunBasic(t *testing.T) {
	lex := buildTestLexicon(t, map[uint32]lexicon.Entry{
		0: {Lemma: "dog", Freq: 100, DominantPoS: "NOUN"},
		1: {Lemma: "bark", Freq: 50, DominantPoS: "VERB"},
	})
	dir := t.TempDir()
	path := writeTestRunFile(t, dir, "run-1.bin", map[record.PairKey]uint32{
		record.MakePairKey(0, 1): 10,
	})

	var got []record.CollocationEntry
	err := MergeShard([]string{path}, lex, Options{MinHeadFreq: 1, MinCoocc: 1, TopK: 10}, func(e record.CollocationEntry) error {
		got = append(got, e)
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "dog", got[0].HeadLemma)
	assert.Equal(t, uint64(100), got[0].HeadTotalFreq)
	assert.Len(t, got[0].Collocates, 1)
	assert.Equal(t, "bark", got[0].Collocates[0].CollLemma)

	expectedLD := LogDice(10, 100, 50)
	assert.InDelta(t, expectedLD, float64(got[0].Collocates[0].LogDice), 0.01)
}

func TestMergeShardCombinesAcrossRuns(t *testing.T) {
	lex := buildTestLexicon(t, map[uint32]lexicon.Entry{
		0: {Lemma: "dog", Freq: 100, DominantPoS: "NOUN"},
		1: {Lemma: "bark", Freq: 50, DominantPoS: "VERB"},
	})
	dir := t.TempDir()
	p1 := writeTestRunFile(t, dir, "run-1.bin", map[record.PairKey]uint32{
		record.MakePairKey(0, 1): 4,
	})
	p2 := writeTestRunFile(t, dir, "run-2.bin", map[record.PairKey]uint32{
		record.MakePairKey(0, 1): 6,
	})

	var got []record.CollocationEntry
	err := MergeShard([]string{p1, p2}, lex, Options{MinHeadFreq: 1, MinCoocc: 1, TopK: 10}, func(e record.CollocationEntry) error {
		got = append(got, e)
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(10), got[0].Collocates[0].Cooccurrence)
}

func TestMergeShardAppliesThresholds(t *testing.T) {
	lex := buildTestLexicon(t, map[uint32]lexicon.Entry{
		0: {Lemma: "rare", Freq: 2, DominantPoS: "NOUN"},
		1: {Lemma: "common", Freq: 500, DominantPoS: "NOUN"},
		2: {Lemma: "weak", Freq: 10, DominantPoS: "VERB"},
	})
	dir := t.TempDir()
	path := writeTestRunFile(t, dir, "run-1.bin", map[record.PairKey]uint32{
		record.MakePairKey(0, 2): 5,
		record.MakePairKey(1, 2): 1,
	})

	var got []record.CollocationEntry
	err := MergeShard([]string{path}, lex, Options{MinHeadFreq: 5, MinCoocc: 2, TopK: 10}, func(e record.CollocationEntry) error {
		got = append(got, e)
		return nil
	})
	assert.NoError(t, err)
	assert.Empty(t, got, "head 0 dropped by MinHeadFreq, head 1's only candidate dropped by MinCoocc")
}

func TestMergeShardTopKOrderingAndTieBreak(t *testing.T) {
	lex := buildTestLexicon(t, map[uint32]lexicon.Entry{
		0: {Lemma: "head", Freq: 1000, DominantPoS: "NOUN"},
		1: {Lemma: "zeta", Freq: 100, DominantPoS: "NOUN"},
		2: {Lemma: "alpha", Freq: 100, DominantPoS: "NOUN"},
		3: {Lemma: "beta", Freq: 10, DominantPoS: "NOUN"},
	})
	dir := t.TempDir()
	path := writeTestRunFile(t, dir, "run-1.bin", map[record.PairKey]uint32{
		record.MakePairKey(0, 1): 50,
		record.MakePairKey(0, 2): 50,
		record.MakePairKey(0, 3): 5,
	})

	var got []record.CollocationEntry
	err := MergeShard([]string{path}, lex, Options{MinHeadFreq: 1, MinCoocc: 1, TopK: 2}, func(e record.CollocationEntry) error {
		got = append(got, e)
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, got[0].Collocates, 2, "top-2 only, beta's lower logDice is discarded")
	// zeta and alpha have equal logDice (same cooccurrence and freq);
	// ties broken lexicographically ascending.
	assert.Equal(t, "alpha", got[0].Collocates[0].CollLemma)
	assert.Equal(t, "zeta", got[0].Collocates[1].CollLemma)
}

func TestLogDiceFormula(t *testing.T) {
	got := LogDice(10, 100, 50)
	want := 14.0 + math.Log2(2*10.0/150.0)
	assert.InDelta(t, want, got, 1e-9)
}
