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
	"encoding/binary"
	"os"
	"sort"
	"time"

	"github.com/czcorpus/collexicon/record"
	"github.com/google/uuid"
)

// NewBuildFingerprint mints the single [16]byte build identity shared
// by a lexicon and its paired store. grammarFingerprint is folded in
// via uuid.NewSHA1, so two builds against the same lexicon/corpus but
// different grammar configurations never collide.
func NewBuildFingerprint(grammarFingerprint [16]byte) [16]byte {
	mixed := uuid.NewSHA1(uuid.New(), grammarFingerprint[:])
	var fp [16]byte
	copy(fp[:], mixed[:])
	return fp
}

// BuildParams carries the header fields fixed at build time that the
// writer cannot infer from the entry stream alone.
type BuildParams struct {
	Window            uint32
	TopK              uint32
	TotalCorpusTokens uint64
	LexiconFingerprint [16]byte
}

// Writer streams entries to a temp file, remembering each one's start
// offset, then appends a sorted key index, fsyncs and atomically
// renames into place. Entries can arrive in any order - the index is
// built by sorting after the fact.
type Writer struct {
	path    string
	tmpPath string
	file    *os.File
	offsets []indexEntry
	offset  uint64
	params  BuildParams
}

type indexEntry struct {
	lemma  string
	offset uint64
}

// Create opens path.tmp for streaming writes.
func Create(path string, params BuildParams) (*Writer, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, record.WrapError(record.Resource, "creating store temp file", err)
	}
	if _, err := f.Write(make([]byte, headerSize)); err != nil {
		f.Close()
		return nil, record.WrapError(record.Resource, "writing store header placeholder", err)
	}
	return &Writer{path: path, tmpPath: tmpPath, file: f, offset: uint64(headerSize), params: params}, nil
}

// Write appends one entry to the data section. Exceeding the
// lemma/POS byte limits is a build error, never a silent truncation.
func (w *Writer) Write(e record.CollocationEntry) error {
	if len(e.HeadLemma) > maxHeadLemmaLen {
		return record.NewError(record.InvalidInput, "head lemma exceeds 65535 bytes: "+e.HeadLemma)
	}
	for _, c := range e.Collocates {
		if len(c.CollLemma) > maxCollFieldLen {
			return record.NewError(record.InvalidInput, "collocate lemma exceeds 255 bytes: "+c.CollLemma)
		}
		if len(c.CollPoS) > maxCollFieldLen {
			return record.NewError(record.InvalidInput, "collocate POS exceeds 255 bytes: "+c.CollPoS)
		}
	}

	size := encodedEntrySize(e)
	buf := make([]byte, size)
	n := encodeEntry(buf, e)
	if n != size {
		return record.NewError(record.Corrupt, "internal: encoded entry size mismatch")
	}
	if _, err := w.file.Write(buf); err != nil {
		return record.WrapError(record.Resource, "writing store entry", err)
	}
	w.offsets = append(w.offsets, indexEntry{lemma: e.HeadLemma, offset: w.offset})
	w.offset += uint64(size)
	return nil
}

// Close writes the key index, header, fsyncs and atomically renames
// the temp file into place.
func (w *Writer) Close() error {
	defer w.file.Close()

	sort.Slice(w.offsets, func(i, j int) bool { return w.offsets[i].lemma < w.offsets[j].lemma })

	keyIndexOffset := w.offset
	bucketCountBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(bucketCountBuf, uint32(len(w.offsets)))
	if _, err := w.file.Write(bucketCountBuf); err != nil {
		return record.WrapError(record.Resource, "writing key index count", err)
	}
	for _, e := range w.offsets {
		keyLenBuf := make([]byte, 2)
		binary.LittleEndian.PutUint16(keyLenBuf, uint16(len(e.lemma)))
		if _, err := w.file.Write(keyLenBuf); err != nil {
			return record.WrapError(record.Resource, "writing key index entry", err)
		}
		if _, err := w.file.Write([]byte(e.lemma)); err != nil {
			return record.WrapError(record.Resource, "writing key index key", err)
		}
		offBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(offBuf, e.offset)
		if _, err := w.file.Write(offBuf); err != nil {
			return record.WrapError(record.Resource, "writing key index offset", err)
		}
	}

	header := Header{
		EntryCount:        uint32(len(w.offsets)),
		Window:            w.params.Window,
		TopK:              w.params.TopK,
		TotalCorpusTokens: w.params.TotalCorpusTokens,
		BuildUUID:         w.params.LexiconFingerprint,
		BuildTimestamp:    time.Now().Unix(),
		KeyIndexOffset:    keyIndexOffset,
	}
	headerBuf := make([]byte, headerSize)
	encodeHeader(headerBuf, header)
	if _, err := w.file.WriteAt(headerBuf, 0); err != nil {
		return record.WrapError(record.Resource, "writing store header", err)
	}

	if err := w.file.Sync(); err != nil {
		return record.WrapError(record.Resource, "fsyncing store file", err)
	}
	if err := w.file.Close(); err != nil {
		return record.WrapError(record.Resource, "closing store file", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return record.WrapError(record.Resource, "renaming store file into place", err)
	}
	return nil
}
