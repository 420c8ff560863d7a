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

// Package aggregate turns a stream of sentences into sorted
// (pair_key, count) run files on disk, partitioned into shards by
// head id so flush and merge work can proceed shard-by-shard.
package aggregate

import (
	"math"
	"sync"

	"github.com/czcorpus/collexicon/record"
)

// shard is a single bucket of the sharded pair table: a primitive
// u64 -> u32 hash map (Go's native map already is the open-addressing
// table the design calls for; see DESIGN.md) with a side map to
// absorb the rare count that would otherwise overflow u32.
type shard struct {
	mu       sync.Mutex
	counts   map[record.PairKey]uint32
	overflow map[record.PairKey]uint64
}

func newShard() *shard {
	return &shard{counts: make(map[record.PairKey]uint32)}
}

// add increments key's count by delta, promoting to the overflow map
// on u32 wraparound.
func (s *shard) add(key record.PairKey, delta uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(key, delta)
}

func (s *shard) addLocked(key record.PairKey, delta uint32) {
	if v, ok := s.overflow[key]; ok {
		s.overflow[key] = v + uint64(delta)
		return
	}
	cur := s.counts[key]
	if uint64(cur)+uint64(delta) > math.MaxUint32 {
		if s.overflow == nil {
			s.overflow = make(map[record.PairKey]uint64)
		}
		s.overflow[key] = uint64(cur) + uint64(delta)
		delete(s.counts, key)
		return
	}
	s.counts[key] = cur + delta
}

// mergeBatch folds a thread-local batch into the shard under one lock
// acquisition, the only point of cross-worker contention.
func (s *shard) mergeBatch(batch map[record.PairKey]uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, delta := range batch {
		s.addLocked(key, delta)
	}
}

// size reports the number of distinct keys currently held (used to
// decide when the shard has crossed SpillThreshold).
func (s *shard) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counts) + len(s.overflow)
}

// drain empties the shard and returns its contents sorted ascending
// by pair key, ready to stream into a run file.
func (s *shard) drain() []pairCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pairCount, 0, len(s.counts)+len(s.overflow))
	for k, v := range s.counts {
		out = append(out, pairCount{key: k, count: uint64(v)})
	}
	for k, v := range s.overflow {
		out = append(out, pairCount{key: k, count: v})
	}
	s.counts = make(map[record.PairKey]uint32)
	s.overflow = nil
	sortPairCounts(out)
	return out
}

type pairCount struct {
	key   record.PairKey
	count uint64
}
