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

// Package collstore implements the single-file, memory-mappable
// collocation store: a writer that streams entries then an index, and
// a reader that mmaps the result read-only and resolves a head lemma
// to its entry in O(1)-effective time.
package collstore

import (
	"encoding/binary"
	"math"

	"github.com/czcorpus/collexicon/record"
)

const (
	fileMagic   = "COLL"
	fileVersion = uint32(1)

	maxHeadLemmaLen = 1<<16 - 1
	maxCollFieldLen = 1<<8 - 1

	// headerSize: magic4 + version4 + entry_count4 + W4 + topK4 +
	// total_corpus_tokens8 + build_uuid16 + build_timestamp8 +
	// key_index_offset8
	headerSize = 4 + 4 + 4 + 4 + 4 + 8 + 16 + 8 + 8
)

// Header is the store file's fixed-width leading section.
type Header struct {
	EntryCount        uint32
	Window            uint32
	TopK              uint32
	TotalCorpusTokens uint64
	BuildUUID         [16]byte
	BuildTimestamp    int64
	KeyIndexOffset    uint64
}

func encodeHeader(buf []byte, h Header) {
	copy(buf[0:4], fileMagic)
	binary.LittleEndian.PutUint32(buf[4:8], fileVersion)
	binary.LittleEndian.PutUint32(buf[8:12], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.Window)
	binary.LittleEndian.PutUint32(buf[16:20], h.TopK)
	binary.LittleEndian.PutUint64(buf[20:28], h.TotalCorpusTokens)
	copy(buf[28:44], h.BuildUUID[:])
	binary.LittleEndian.PutUint64(buf[44:52], uint64(h.BuildTimestamp))
	binary.LittleEndian.PutUint64(buf[52:60], h.KeyIndexOffset)
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < headerSize {
		return h, record.NewError(record.Corrupt, "store header truncated")
	}
	if string(buf[0:4]) != fileMagic {
		return h, record.NewError(record.Corrupt, "bad store file magic")
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != fileVersion {
		return h, record.NewError(record.Corrupt, "unsupported store file version")
	}
	h.EntryCount = binary.LittleEndian.Uint32(buf[8:12])
	h.Window = binary.LittleEndian.Uint32(buf[12:16])
	h.TopK = binary.LittleEndian.Uint32(buf[16:20])
	h.TotalCorpusTokens = binary.LittleEndian.Uint64(buf[20:28])
	copy(h.BuildUUID[:], buf[28:44])
	h.BuildTimestamp = int64(binary.LittleEndian.Uint64(buf[44:52]))
	h.KeyIndexOffset = binary.LittleEndian.Uint64(buf[52:60])
	return h, nil
}

// encodedEntrySize computes the exact byte length of e's data-section
// record, used both to size write buffers and to bounds-check decode.
func encodedEntrySize(e record.CollocationEntry) int {
	n := 2 + len(e.HeadLemma) + 8 + 2
	for _, c := range e.Collocates {
		n += 1 + len(c.CollLemma) + 1 + len(c.CollPoS) + 8 + 8 + 4
	}
	return n
}

func encodeEntry(buf []byte, e record.CollocationEntry) int {
	n := 0
	binary.LittleEndian.PutUint16(buf[n:], uint16(len(e.HeadLemma)))
	n += 2
	n += copy(buf[n:], e.HeadLemma)
	binary.LittleEndian.PutUint64(buf[n:], e.HeadTotalFreq)
	n += 8
	binary.LittleEndian.PutUint16(buf[n:], uint16(len(e.Collocates)))
	n += 2
	for _, c := range e.Collocates {
		buf[n] = byte(len(c.CollLemma))
		n++
		n += copy(buf[n:], c.CollLemma)
		buf[n] = byte(len(c.CollPoS))
		n++
		n += copy(buf[n:], c.CollPoS)
		binary.LittleEndian.PutUint64(buf[n:], c.Cooccurrence)
		n += 8
		binary.LittleEndian.PutUint64(buf[n:], c.CollTotalFreq)
		n += 8
		binary.LittleEndian.PutUint32(buf[n:], math.Float32bits(float32(c.LogDice)))
		n += 4
	}
	return n
}

// decodeEntry reads one entry starting at buf[0], returning it along
// with the number of bytes consumed.
func decodeEntry(buf []byte) (record.CollocationEntry, int, error) {
	if len(buf) < 2 {
		return record.CollocationEntry{}, 0, record.NewError(record.Corrupt, "store entry truncated (head lemma len)")
	}
	headLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	n := 2
	if len(buf) < n+headLen+8+2 {
		return record.CollocationEntry{}, 0, record.NewError(record.Corrupt, "store entry truncated (head lemma/freq/count)")
	}
	head := string(buf[n : n+headLen])
	n += headLen
	headFreq := binary.LittleEndian.Uint64(buf[n : n+8])
	n += 8
	collCount := int(binary.LittleEndian.Uint16(buf[n : n+2]))
	n += 2

	collocates := make([]record.CollocateRecord, collCount)
	for i := 0; i < collCount; i++ {
		if len(buf) < n+2 {
			return record.CollocationEntry{}, 0, record.NewError(record.Corrupt, "store collocate truncated (lengths)")
		}
		lemmaLen := int(buf[n])
		n++
		if len(buf) < n+lemmaLen+1 {
			return record.CollocationEntry{}, 0, record.NewError(record.Corrupt, "store collocate truncated (lemma)")
		}
		lemma := string(buf[n : n+lemmaLen])
		n += lemmaLen
		posLen := int(buf[n])
		n++
		if len(buf) < n+posLen+8+8+4 {
			return record.CollocationEntry{}, 0, record.NewError(record.Corrupt, "store collocate truncated (pos/freqs)")
		}
		pos := string(buf[n : n+posLen])
		n += posLen
		cooc := binary.LittleEndian.Uint64(buf[n : n+8])
		n += 8
		collFreq := binary.LittleEndian.Uint64(buf[n : n+8])
		n += 8
		ld := math.Float32frombits(binary.LittleEndian.Uint32(buf[n : n+4]))
		n += 4
		collocates[i] = record.CollocateRecord{
			CollLemma:     lemma,
			CollPoS:       pos,
			Cooccurrence:  cooc,
			CollTotalFreq: collFreq,
			LogDice:       record.RoundedFloat(ld),
		}
	}
	return record.CollocationEntry{HeadLemma: head, HeadTotalFreq: headFreq, Collocates: collocates}, n, nil
}
