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
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/czcorpus/collexicon/record"
)

// Options configures an Aggregator. NumShards must be a power of two.
type Options struct {
	NumShards      int
	SpillThreshold int // per-shard key count that triggers a flush
	Watermark      int // global key count across all shards that triggers flushing the largest one
	RunDir         string
}

// Aggregator is the sharded pair table of C2: it converts sentences
// into spilled, sorted run files, one shard's worth of files per
// shard directory under RunDir.
type Aggregator struct {
	opts   Options
	shards []*shard
	runSeq []int32 // per-shard run file counter, for unique file names
}

// New creates an Aggregator. NumShards is rounded up to the next power
// of two if it is not already one.
func New(opts Options) (*Aggregator, error) {
	n := nextPowerOfTwo(opts.NumShards)
	opts.NumShards = n
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = newShard()
	}
	for i := 0; i < n; i++ {
		if err := os.MkdirAll(shardDir(opts.RunDir, i), 0o755); err != nil {
			return nil, record.WrapError(record.Resource, "creating shard run directory", err)
		}
	}
	return &Aggregator{opts: opts, shards: shards, runSeq: make([]int32, n)}, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (a *Aggregator) shardOf(headID uint32) int {
	return int(headID) & (a.opts.NumShards - 1)
}

func shardDir(runDir string, shard int) string {
	return filepath.Join(runDir, fmt.Sprintf("shard-%04d", shard))
}

// Batch is a worker-local accumulator: sentences are folded into it
// without touching any shard's mutex, then periodically flushed into
// the shared shards via MergeBatch - the only point of contention.
type Batch struct {
	perShard []map[record.PairKey]uint32
}

// NewBatch creates a thread-local batch for one worker.
func (a *Aggregator) NewBatch() *Batch {
	b := &Batch{perShard: make([]map[record.PairKey]uint32, a.opts.NumShards)}
	for i := range b.perShard {
		b.perShard[i] = make(map[record.PairKey]uint32)
	}
	return b
}

// Process folds one sentence's pair observations into batch. ids must
// be aligned with sentence position order; a position whose id is
// record.UnknownLemmaID is skipped entirely, since it has no
// collocational meaning to aggregate.
func (a *Aggregator) Process(batch *Batch, ids []uint32, window int) {
	for i := range ids {
		if ids[i] == record.UnknownLemmaID {
			continue
		}
		maxJ := i + window
		if maxJ >= len(ids) {
			maxJ = len(ids) - 1
		}
		for j := i + 1; j <= maxJ; j++ {
			if ids[j] == record.UnknownLemmaID || ids[j] == ids[i] {
				continue
			}
			fwd := record.MakePairKey(ids[i], ids[j])
			rev := record.MakePairKey(ids[j], ids[i])
			batch.perShard[a.shardOf(ids[i])][fwd]++
			batch.perShard[a.shardOf(ids[j])][rev]++
		}
	}
}

// MergeBatch folds a worker's batch into the shared shards and resets it.
func (a *Aggregator) MergeBatch(batch *Batch) {
	for i, m := range batch.perShard {
		if len(m) == 0 {
			continue
		}
		a.shards[i].mergeBatch(m)
		batch.perShard[i] = make(map[record.PairKey]uint32)
	}
}

// MaybeSpill flushes any shard whose size has crossed SpillThreshold,
// and additionally flushes the single largest shard if the combined
// size across all shards has crossed Watermark.
func (a *Aggregator) MaybeSpill() error {
	total := 0
	largest, largestSize := -1, -1
	for i, s := range a.shards {
		sz := s.size()
		total += sz
		if sz > largestSize {
			largest, largestSize = i, sz
		}
		if sz >= a.opts.SpillThreshold {
			if err := a.spill(i); err != nil {
				return err
			}
		}
	}
	if a.opts.Watermark > 0 && total >= a.opts.Watermark && largest >= 0 && a.shards[largest].size() > 0 {
		if err := a.spill(largest); err != nil {
			return err
		}
	}
	return nil
}

// Finish unconditionally flushes every shard, even if the spill
// thresholds were never crossed.
func (a *Aggregator) Finish() error {
	for i := range a.shards {
		if a.shards[i].size() > 0 {
			if err := a.spill(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Aggregator) spill(shardIdx int) error {
	pairs := a.shards[shardIdx].drain()
	if len(pairs) == 0 {
		return nil
	}
	seq := atomic.AddInt32(&a.runSeq[shardIdx], 1)
	path := filepath.Join(shardDir(a.opts.RunDir, shardIdx), fmt.Sprintf("run-%06d.bin", seq))
	return writeRunFile(path, pairs)
}

// ShardRunFiles lists the run files currently on disk for one shard,
// in creation order, for the merge step to open.
func (a *Aggregator) ShardRunFiles(shardIdx int) ([]string, error) {
	entries, err := os.ReadDir(shardDir(a.opts.RunDir, shardIdx))
	if err != nil {
		return nil, record.WrapError(record.Resource, "listing shard run directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, filepath.Join(shardDir(a.opts.RunDir, shardIdx), e.Name()))
		}
	}
	return names, nil
}

// NumShards reports the (power-of-two-rounded) shard count in use.
func (a *Aggregator) NumShards() int { return a.opts.NumShards }
