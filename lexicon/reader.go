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

package lexicon

import (
	"errors"
	"os"

	"github.com/czcorpus/collexicon/record"
	"github.com/edsrzf/mmap-go"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Reader is the finalized, immutable lexicon as the merger and query
// executor consume it: dense id -> (lemma, freq, dominant pos) and the
// reverse lemma -> id lookup, plus prefix search over lemma strings.
// Concurrent Get* calls from many goroutines are safe: the reader
// never mutates after Open.
type Reader struct {
	mapping  mmap.MMap
	fp       [16]byte
	entries  []Entry
	resolve  map[string]uint32
	prefixes *patricia.Trie
}

// Fingerprint returns the build UUID embedded in the file, which the
// paired store's header must equal byte-for-byte (see collstore.Open).
func (r *Reader) Fingerprint() [16]byte { return r.fp }

// Open memory-maps path and eagerly decodes its entries into plain
// slices/maps - affordable at the lexicon's scale, since its
// per-entry payload is small relative to the companion store.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, record.WrapError(record.Resource, "opening lexicon file", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, record.WrapError(record.Resource, "mmapping lexicon file", err)
	}

	h, err := decodeHeader(m)
	if err != nil {
		m.Unmap()
		return nil, err
	}

	entries := make([]Entry, h.entryCount)
	offset := uint64(headerSize)
	for i := range entries {
		e, n, err := decodeEntry(m[offset:h.idIndexOffset])
		if err != nil {
			m.Unmap()
			return nil, err
		}
		entries[i] = e
		offset += uint64(n)
	}
	if offset != h.idIndexOffset {
		m.Unmap()
		return nil, record.NewError(record.Corrupt, "lexicon data section does not align with id index")
	}

	resolve := make(map[string]uint32, len(entries))
	trie := patricia.NewTrie()
	for id, e := range entries {
		resolve[e.Lemma] = uint32(id)
		trie.Insert(patricia.Prefix(e.Lemma), uint32(id))
	}

	return &Reader{
		mapping:  m,
		fp:       h.buildUUID,
		entries:  entries,
		resolve:  resolve,
		prefixes: trie,
	}, nil
}

// Close unmaps the underlying file.
func (r *Reader) Close() error {
	return r.mapping.Unmap()
}

func (r *Reader) Len() int { return len(r.entries) }

// GetFreq returns id's total corpus frequency, or 0 for an out-of-range id.
func (r *Reader) GetFreq(id uint32) uint64 {
	if int(id) >= len(r.entries) {
		return 0
	}
	return r.entries[id].Freq
}

// GetLemma returns id's lemma, or "" for an out-of-range id.
func (r *Reader) GetLemma(id uint32) string {
	if int(id) >= len(r.entries) {
		return ""
	}
	return r.entries[id].Lemma
}

// GetDominantPoS returns id's most frequently observed POS tag.
func (r *Reader) GetDominantPoS(id uint32) string {
	if int(id) >= len(r.entries) {
		return ""
	}
	return r.entries[id].DominantPoS
}

// GetDominantPoSGroup returns id's coarse UPOS-derived classification,
// for operators who want to browse or filter the lexicon by
// part-of-speech family rather than by the corpus's raw, possibly
// XPOS-flavored tag.
func (r *Reader) GetDominantPoSGroup(id uint32) record.PosGroup {
	if int(id) >= len(r.entries) {
		return record.GroupOther
	}
	return r.entries[id].DominantPoSGroup
}

// Resolve maps a lemma to its dense id. ok is false, and the returned
// id is record.UnknownLemmaID, when the lemma is absent - callers MUST
// treat this as "skip", never as id 0.
func (r *Reader) Resolve(lemma string) (id uint32, ok bool) {
	id, ok = r.resolve[fold(lemma)]
	if !ok {
		return record.UnknownLemmaID, false
	}
	return id, true
}

// PrefixSearch returns every lemma beginning with prefix, up to limit
// results (0 means unlimited), for operators browsing the lexicon -
// not part of the core merge/query path.
func (r *Reader) PrefixSearch(prefix string, limit int) []string {
	prefix = fold(prefix)
	var out []string
	err := r.prefixes.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if limit > 0 && len(out) >= limit {
			return errStopVisit
		}
		out = append(out, string(p))
		return nil
	})
	_ = err // errStopVisit is the only error VisitSubtree's callback ever returns
	return out
}

var errStopVisit = errors.New("prefix search limit reached")
