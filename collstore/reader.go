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

	"github.com/czcorpus/collexicon/record"
	"github.com/edsrzf/mmap-go"
)

// Reader is the finalized, memory-mapped collocation store as the
// query executor consumes it: head lemma -> CollocationEntry in
// O(1)-effective time via an eagerly decoded key index.
type Reader struct {
	mapping mmap.MMap
	header  Header
	index   map[string]uint64
}

// Open memory-maps path read-only and decodes its key index. expected
// is the lexicon fingerprint the store must have been built against -
// it is checked byte-for-byte against the header's BuildUUID, and a
// mismatch refuses to open rather than returning results that could
// reference a different lexicon's dense ids.
func Open(path string, expected [16]byte) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, record.WrapError(record.Resource, "opening store file", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, record.WrapError(record.Resource, "mmapping store file", err)
	}

	h, err := decodeHeader(m)
	if err != nil {
		m.Unmap()
		return nil, err
	}
	if h.BuildUUID != expected {
		m.Unmap()
		return nil, record.NewError(record.Precondition, "store fingerprint "+record.FingerprintHex(h.BuildUUID)+
			" does not match companion lexicon fingerprint "+record.FingerprintHex(expected))
	}

	index, err := decodeKeyIndex(m, h.KeyIndexOffset)
	if err != nil {
		m.Unmap()
		return nil, err
	}

	return &Reader{mapping: m, header: h, index: index}, nil
}

func decodeKeyIndex(m []byte, keyIndexOffset uint64) (map[string]uint64, error) {
	if keyIndexOffset > uint64(len(m)) {
		return nil, record.NewError(record.Corrupt, "store key index offset out of range")
	}
	buf := m[keyIndexOffset:]
	if len(buf) < 4 {
		return nil, record.NewError(record.Corrupt, "store key index truncated (bucket count)")
	}
	bucketCount := binary.LittleEndian.Uint32(buf[0:4])
	n := 4

	index := make(map[string]uint64, bucketCount)
	for i := uint32(0); i < bucketCount; i++ {
		if len(buf) < n+2 {
			return nil, record.NewError(record.Corrupt, "store key index truncated (key length)")
		}
		keyLen := int(binary.LittleEndian.Uint16(buf[n : n+2]))
		n += 2
		if len(buf) < n+keyLen+8 {
			return nil, record.NewError(record.Corrupt, "store key index truncated (key/offset)")
		}
		key := string(buf[n : n+keyLen])
		n += keyLen
		offset := binary.LittleEndian.Uint64(buf[n : n+8])
		n += 8
		index[key] = offset
	}
	return index, nil
}

// Close unmaps the underlying file.
func (r *Reader) Close() error {
	return r.mapping.Unmap()
}

// Has reports whether headLemma has a precomputed entry.
func (r *Reader) Has(headLemma string) bool {
	_, ok := r.index[headLemma]
	return ok
}

// Get decodes and returns headLemma's entry. ok is false if headLemma
// was never a head in this build (it may still occur as a collocate).
// A decode failure on a key the index does have is a Corrupt error,
// never silently downgraded to "not found".
func (r *Reader) Get(headLemma string) (record.CollocationEntry, bool, error) {
	offset, ok := r.index[headLemma]
	if !ok {
		return record.CollocationEntry{}, false, nil
	}
	entry, _, err := decodeEntry(r.mapping[offset:])
	if err != nil {
		return record.CollocationEntry{}, false, err
	}
	return entry, true, nil
}

// EntryCount reports how many heads the store holds.
func (r *Reader) EntryCount() uint32 { return r.header.EntryCount }

// Window reports the collocation window the store was built with.
func (r *Reader) Window() uint32 { return r.header.Window }

// TopK reports the per-head collocate retention bound the store was
// built with.
func (r *Reader) TopK() uint32 { return r.header.TopK }

// TotalCorpusTokens reports the token count of the corpus the store
// was built from.
func (r *Reader) TotalCorpusTokens() uint64 { return r.header.TotalCorpusTokens }

// Fingerprint returns the build identity embedded in the store's
// header, equal to the companion lexicon's own fingerprint.
func (r *Reader) Fingerprint() [16]byte { return r.header.BuildUUID }

// BuildTimestamp reports when the store was built, as a Unix seconds
// timestamp.
func (r *Reader) BuildTimestamp() int64 { return r.header.BuildTimestamp }
