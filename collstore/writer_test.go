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

package collstore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/czcorpus/collexicon/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFingerprint() [16]byte {
	id := uuid.New()
	var fp [16]byte
	copy(fp[:], id[:])
	return fp
}

func writeTestStore(t *testing.T, fp [16]byte, entries []record.CollocationEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.bin")
	w, err := Create(path, BuildParams{
		Window:             5,
		TopK:               10,
		TotalCorpusTokens:  1000,
		LexiconFingerprint: fp,
	})
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Close())
	return path
}

func TestWriterReaderRoundTrip(t *testing.T) {
	fp := testFingerprint()
	entries := []record.CollocationEntry{
		{
			HeadLemma:     "dog",
			HeadTotalFreq: 100,
			Collocates: []record.CollocateRecord{
				{CollLemma: "bark", CollPoS: "VERB", Cooccurrence: 10, CollTotalFreq: 50, LogDice: record.RoundedFloat(9.123456)},
			},
		},
		{
			HeadLemma:     "cat",
			HeadTotalFreq: 80,
			Collocates:    []record.CollocateRecord{},
		},
	}
	path := writeTestStore(t, fp, entries)

	r, err := Open(path, fp)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(2), r.EntryCount())
	assert.Equal(t, uint32(5), r.Window())
	assert.Equal(t, uint32(10), r.TopK())
	assert.Equal(t, uint64(1000), r.TotalCorpusTokens())
	assert.Equal(t, fp, r.Fingerprint())

	assert.True(t, r.Has("dog"))
	got, ok, err := r.Get("dog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dog", got.HeadLemma)
	assert.Equal(t, uint64(100), got.HeadTotalFreq)
	require.Len(t, got.Collocates, 1)
	assert.Equal(t, "bark", got.Collocates[0].CollLemma)
	assert.InDelta(t, 9.123, float64(got.Collocates[0].LogDice), 0.01)

	assert.False(t, r.Has("fox"))
	_, ok, err = r.Get("fox")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenRejectsFingerprintMismatch(t *testing.T) {
	fp := testFingerprint()
	path := writeTestStore(t, fp, []record.CollocationEntry{
		{HeadLemma: "dog", HeadTotalFreq: 1},
	})

	_, err := Open(path, testFingerprint())
	require.Error(t, err)
	var rerr *record.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, record.Precondition, rerr.Kind)
}

func TestWriteRejectsOversizedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	w, err := Create(path, BuildParams{LexiconFingerprint: testFingerprint()})
	require.NoError(t, err)
	defer w.Close()

	err = w.Write(record.CollocationEntry{HeadLemma: strings.Repeat("x", 1<<16)})
	require.Error(t, err)
	var rerr *record.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, record.InvalidInput, rerr.Kind)
}

func TestWriteRejectsOversizedCollocateFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	w, err := Create(path, BuildParams{LexiconFingerprint: testFingerprint()})
	require.NoError(t, err)
	defer w.Close()

	err = w.Write(record.CollocationEntry{
		HeadLemma: "dog",
		Collocates: []record.CollocateRecord{
			{CollLemma: strings.Repeat("y", 256)},
		},
	})
	require.Error(t, err)
}
