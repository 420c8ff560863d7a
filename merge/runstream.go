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
	"os"

	"github.com/czcorpus/collexicon/record"
)

// runStream is one open run file positioned at its next unread record.
type runStream struct {
	path   string
	data   []byte
	pos    int
	remain uint64
}

func openRunStream(path string) (*runStream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, record.WrapError(record.Resource, "reading run file "+path, err)
	}
	count, err := record.DecodeRunFileHeader(data)
	if err != nil {
		return nil, record.WrapError(record.Corrupt, "decoding run file header "+path, err)
	}
	if count > uint64(len(data)-record.RunFileHeaderSize)/record.RunRecordSize {
		return nil, record.NewError(record.Corrupt, "run file truncated "+path)
	}
	return &runStream{path: path, data: data, pos: record.RunFileHeaderSize, remain: count}, nil
}

func (s *runStream) exhausted() bool {
	return s.remain == 0
}

// peek returns the next (key, count) without consuming it.
func (s *runStream) peek() (record.PairKey, uint32) {
	return record.DecodeRunRecord(s.data[s.pos : s.pos+record.RunRecordSize])
}

// advance consumes the current record.
func (s *runStream) advance() {
	s.pos += record.RunRecordSize
	s.remain--
}

// runHeap is a container/heap.Interface over open run streams, ordered
// by each stream's current (unconsumed) key - the standard k-way merge
// primitive. Using container/heap here is a deliberate stdlib choice;
// see DESIGN.md.
type runHeap []*runStream

func (h runHeap) Len() int { return len(h) }
func (h runHeap) Less(i, j int) bool {
	ki, _ := h[i].peek()
	kj, _ := h[j].peek()
	return ki < kj
}
func (h runHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)   { *h = append(*h, x.(*runStream)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
