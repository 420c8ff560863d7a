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

package aggregate

import (
	"os"
	"testing"

	"github.com/czcorpus/collexicon/record"
	"github.com/stretchr/testify/assert"
)

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	return data
}

func newTestAggregator(t *testing.T, spillThreshold int) *Aggregator {
	t.Helper()
	a, err := New(Options{
		NumShards:      4,
		SpillThreshold: spillThreshold,
		RunDir:         t.TempDir(),
	})
	assert.NoError(t, err)
	return a
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {63, 64}, {64, 64}, {65, 128},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPowerOfTwo(tt.in))
	}
}

func TestProcessEmitsBidirectionalPairsWithinWindow(t *testing.T) {
	a := newTestAggregator(t, 1<<20)
	batch := a.NewBatch()

	a.Process(batch, []uint32{1, 2, 3}, 1)
	a.MergeBatch(batch)
	assert.NoError(t, a.Finish())

	pairs := readAllPairs(t, a, 4)
	assert.Contains(t, pairs, record.MakePairKey(1, 2))
	assert.Contains(t, pairs, record.MakePairKey(2, 1))
	assert.Contains(t, pairs, record.MakePairKey(2, 3))
	assert.Contains(t, pairs, record.MakePairKey(3, 2))
	assert.NotContains(t, pairs, record.MakePairKey(1, 3))
	assert.NotContains(t, pairs, record.MakePairKey(3, 1))
}

func TestProcessSkipsUnknownAndSelfPairs(t *testing.T) {
	a := newTestAggregator(t, 1<<20)
	batch := a.NewBatch()

	a.Process(batch, []uint32{5, record.UnknownLemmaID, 5}, 2)
	a.MergeBatch(batch)
	assert.NoError(t, a.Finish())

	pairs := readAllPairs(t, a, 4)
	assert.Empty(t, pairs)
}

func TestFinishFlushesEvenUnderThreshold(t *testing.T) {
	a := newTestAggregator(t, 1<<20)
	batch := a.NewBatch()
	a.Process(batch, []uint32{10, 20}, 1)
	a.MergeBatch(batch)

	for i := 0; i < 4; i++ {
		files, err := a.ShardRunFiles(i)
		assert.NoError(t, err)
		assert.Empty(t, files)
	}

	assert.NoError(t, a.Finish())
	found := false
	for i := 0; i < 4; i++ {
		files, err := a.ShardRunFiles(i)
		assert.NoError(t, err)
		if len(files) > 0 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMaybeSpillTriggersOnThreshold(t *testing.T) {
	a := newTestAggregator(t, 2)
	batch := a.NewBatch()
	a.Process(batch, []uint32{1, 2, 3, 4}, 3)
	a.MergeBatch(batch)

	assert.NoError(t, a.MaybeSpill())

	totalFiles := 0
	for i := 0; i < a.NumShards(); i++ {
		files, err := a.ShardRunFiles(i)
		assert.NoError(t, err)
		totalFiles += len(files)
	}
	assert.Greater(t, totalFiles, 0)
}

// readAllPairs drains every shard's run files via the raw record
// decoder, independent of the merger, to keep this test from depending
// on package merge.
func readAllPairs(t *testing.T, a *Aggregator, numShards int) map[record.PairKey]uint64 {
	t.Helper()
	out := make(map[record.PairKey]uint64)
	for i := 0; i < numShards; i++ {
		files, err := a.ShardRunFiles(i)
		assert.NoError(t, err)
		for _, path := range files {
			out = mergeFileInto(t, path, out)
		}
	}
	return out
}

func mergeFileInto(t *testing.T, path string, into map[record.PairKey]uint64) map[record.PairKey]uint64 {
	t.Helper()
	data := readFile(t, path)
	count, err := record.DecodeRunFileHeader(data)
	assert.NoError(t, err)
	off := record.RunFileHeaderSize
	for i := uint64(0); i < count; i++ {
		key, c := record.DecodeRunRecord(data[off : off+record.RunRecordSize])
		into[key] += uint64(c)
		off += record.RunRecordSize
	}
	return into
}
