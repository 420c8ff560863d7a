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

// Package merge reduces a shard's sorted run files into final
// CollocationEntry values: a k-way merge grouped by head id, threshold
// filtering, logDice scoring and bounded top-K retention.
package merge

import (
	"container/heap"

	"github.com/czcorpus/collexicon/lexicon"
	"github.com/czcorpus/collexicon/record"
)

// Options bounds and thresholds a merge pass.
type Options struct {
	MinHeadFreq uint64
	MinCoocc    uint64
	TopK        int
}

// EntryFunc receives one emitted entry at a time, in ascending
// head_id order.
type EntryFunc func(record.CollocationEntry) error

// MergeShard performs the k-way merge of paths (one shard's run
// files) and emits one CollocationEntry per surviving head. A corrupt
// run file aborts the whole pass - merge must never silently skip
// records.
func MergeShard(paths []string, lex *lexicon.Reader, opts Options, emit EntryFunc) error {
	streams := make([]*runStream, 0, len(paths))
	for _, p := range paths {
		s, err := openRunStream(p)
		if err != nil {
			return err
		}
		if !s.exhausted() {
			streams = append(streams, s)
		}
	}

	h := make(runHeap, len(streams))
	copy(h, streams)
	heap.Init(&h)

	var haveHead bool
	var currentHead uint32
	buffer := make([]aggPair, 0, 64)

	flush := func() error {
		if !haveHead || len(buffer) == 0 {
			buffer = buffer[:0]
			return nil
		}
		entry, ok := buildEntry(lex, currentHead, buffer, opts)
		buffer = buffer[:0]
		if !ok {
			return nil
		}
		return emit(entry)
	}

	for h.Len() > 0 {
		s := h[0]
		key, count := s.peek()
		head, coll := key.Head(), key.Coll()

		if !haveHead || head != currentHead {
			if err := flush(); err != nil {
				return err
			}
			currentHead = head
			haveHead = true
		}

		// Combine equal pair keys across streams by summing counts.
		sum := uint64(count)
		s.advance()
		if s.exhausted() {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
		for h.Len() > 0 {
			nk, nc := h[0].peek()
			if nk != key {
				break
			}
			sum += uint64(nc)
			h[0].advance()
			if h[0].exhausted() {
				heap.Pop(&h)
			} else {
				heap.Fix(&h, 0)
			}
		}

		// key is fully consumed above (all streams sharing it were
		// summed into sum), so coll cannot repeat in buffer.
		buffer = append(buffer, aggPair{collID: coll, count: sum})
	}
	return flush()
}

type aggPair struct {
	collID uint32
	count  uint64
}

func buildEntry(lex *lexicon.Reader, headID uint32, buffer []aggPair, opts Options) (record.CollocationEntry, bool) {
	headFreq := lex.GetFreq(headID)
	if headFreq < opts.MinHeadFreq {
		return record.CollocationEntry{}, false
	}

	topK := newTopKHeap(opts.TopK)
	for _, p := range buffer {
		if p.count < opts.MinCoocc {
			continue
		}
		collFreq := lex.GetFreq(p.collID)
		if collFreq == 0 {
			continue
		}
		ld := LogDice(p.count, headFreq, collFreq)
		topK.offer(candidate{
			collID:        p.collID,
			collLemma:     lex.GetLemma(p.collID),
			collPoS:       lex.GetDominantPoS(p.collID),
			cooccurrence:  p.count,
			collTotalFreq: collFreq,
			logDice:       ld,
		})
	}

	survivors := topK.sorted()
	if len(survivors) == 0 {
		return record.CollocationEntry{}, false
	}

	entry := record.CollocationEntry{
		HeadLemma:     lex.GetLemma(headID),
		HeadTotalFreq: headFreq,
		Collocates:    make([]record.CollocateRecord, len(survivors)),
	}
	for i, s := range survivors {
		entry.Collocates[i] = record.CollocateRecord{
			CollLemma:     s.collLemma,
			CollPoS:       s.collPoS,
			Cooccurrence:  s.cooccurrence,
			CollTotalFreq: s.collTotalFreq,
			LogDice:       record.RoundedFloat(s.logDice),
		}
	}
	return entry, true
}
