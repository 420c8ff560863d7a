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
	"container/heap"
	"sort"
)

// candidate is one surviving (coll_id, sum) pair during a head flush,
// scored and ready for top-K retention.
type candidate struct {
	collID        uint32
	collLemma     string
	collPoS       string
	cooccurrence  uint64
	collTotalFreq uint64
	logDice       float64
}

// topKHeap is a bounded min-heap of at most K candidates, ordered so
// that the worst-ranked survivor (lowest logDice, ties broken by the
// lexicographically later coll_lemma) sits at the root and is evicted
// first when a better candidate arrives.
type topKHeap struct {
	items []candidate
	k     int
}

func newTopKHeap(k int) *topKHeap {
	return &topKHeap{k: k}
}

// worse reports whether a ranks below b under the entry's tie-break
// rule: higher logDice wins; on a tie, the lexicographically smaller
// coll_lemma wins.
func worse(a, b candidate) bool {
	if a.logDice != b.logDice {
		return a.logDice < b.logDice
	}
	return a.collLemma > b.collLemma
}

func (h topKHeap) Len() int            { return len(h.items) }
func (h topKHeap) Less(i, j int) bool  { return worse(h.items[i], h.items[j]) }
func (h topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x any)         { h.items = append(h.items, x.(candidate)) }
func (h *topKHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// offer admits c into the bounded top-K set.
func (h *topKHeap) offer(c candidate) {
	if h.k <= 0 {
		return
	}
	if h.Len() < h.k {
		heap.Push(h, c)
		return
	}
	if worse(h.items[0], c) {
		heap.Pop(h)
		heap.Push(h, c)
	}
}

// sorted returns the retained candidates in the entry's canonical
// order: logDice descending, coll_lemma ascending on ties, using plain
// sort.Slice rather than the bounded heap since the candidate set is
// small and fixed by this point.
func (h *topKHeap) sorted() []candidate {
	out := make([]candidate, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })
	return out
}
