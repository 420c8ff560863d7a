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
	"encoding/binary"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/czcorpus/collexicon/record"
)

// Builder assigns dense ids to lemmas and accumulates their frequency
// and dominant-POS tally during indexing, serving ids from 0 in
// first-seen order and panicking on id-space overflow.
type Builder struct {
	mu         sync.Mutex
	ids        map[string]uint32
	lemmas     []string
	freqs      []uint64
	posTally   []map[string]uint32
	groupTally []map[record.PosGroup]uint32
}

// NewBuilder creates an empty Builder. Ids are dense and assigned from
// 0, in first-seen order.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]uint32)}
}

// fold applies the lexicon's case-folding rule: lemmas are indexed by
// their normalized (case-folded) surface string.
func fold(lemma string) string {
	return strings.ToLower(lemma)
}

// AssignOrGet returns the dense id for lemma, assigning a fresh one on
// first sight. Safe for concurrent use.
func (b *Builder) AssignOrGet(lemma string) uint32 {
	key := fold(lemma)
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.ids[key]; ok {
		return id
	}
	if len(b.lemmas) == 1<<32-1 {
		panic("lexicon builder overflow: too many distinct lemmas")
	}
	id := uint32(len(b.lemmas))
	b.ids[key] = id
	b.lemmas = append(b.lemmas, key)
	b.freqs = append(b.freqs, 0)
	b.posTally = append(b.posTally, make(map[string]uint32, 1))
	b.groupTally = append(b.groupTally, make(map[record.PosGroup]uint32, 1))
	return id
}

// Increment adds one occurrence of id tagged with posTag (the
// corpus-native tag, XPOS-preferred, stored verbatim for pattern
// matching) and upos (the Universal POS tag, classified into a coarse
// record.PosGroup for the lexicon's supplemented group lookup). Either
// may be passed empty if the corpus lacks that annotation layer.
func (b *Builder) Increment(id uint32, posTag, upos string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(id) >= len(b.freqs) {
		return
	}
	b.freqs[id]++
	if posTag != "" {
		b.posTally[id][posTag]++
	}
	if upos != "" {
		b.groupTally[id][record.GroupOf(upos)]++
	}
}

// NumLemmas reports how many distinct lemmas have been assigned so far.
func (b *Builder) NumLemmas() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lemmas)
}

func (b *Builder) dominantPoS(id uint32) string {
	var best string
	var bestCount uint32
	tally := b.posTally[id]
	tags := make([]string, 0, len(tally))
	for tag := range tally {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		if c := tally[tag]; c > bestCount {
			best, bestCount = tag, c
		}
	}
	return best
}

func (b *Builder) dominantGroup(id uint32) record.PosGroup {
	var best record.PosGroup
	var bestCount uint32
	tally := b.groupTally[id]
	groups := make([]record.PosGroup, 0, len(tally))
	for g := range tally {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	for _, g := range groups {
		if c := tally[g]; c > bestCount {
			best, bestCount = g, c
		}
	}
	if best == "" {
		return record.GroupOther
	}
	return best
}

// Finalize writes the lexicon file to path via a temp file, fsync and
// atomic rename. fingerprint is the single build identity shared with
// the paired collocation store - callers derive it once per build,
// typically mixing in the grammar configuration's own fingerprint, and
// pass the same value to collstore.BuildParams.LexiconFingerprint.
func (b *Builder) Finalize(path string, fingerprint [16]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]Entry, len(b.lemmas))
	for id := range b.lemmas {
		entries[id] = Entry{
			Lemma:            b.lemmas[id],
			Freq:             b.freqs[id],
			DominantPoS:      b.dominantPoS(uint32(id)),
			DominantPoSGroup: b.dominantGroup(uint32(id)),
		}
	}

	buildTimestamp := time.Now().Unix()

	tmpPath := path + ".tmp"
	f, ferr := os.Create(tmpPath)
	if ferr != nil {
		return record.WrapError(record.Resource, "creating lexicon temp file", ferr)
	}
	defer f.Close()

	// Reserve header space, stream the data section, remember each
	// entry's offset, then append the id index and the sorted name
	// index.
	if _, err := f.Write(make([]byte, headerSize)); err != nil {
		return record.WrapError(record.Resource, "writing lexicon header placeholder", err)
	}

	offsets := make([]uint64, len(entries))
	offset := uint64(headerSize)
	buf := make([]byte, 2+(1<<16)+8+1+255)
	for id, e := range entries {
		if len(e.Lemma) > 1<<16-1 {
			return record.NewError(record.InvalidInput, "lemma exceeds 65535 bytes: "+e.Lemma)
		}
		if len(e.DominantPoS) > 255 {
			return record.NewError(record.InvalidInput, "dominant POS tag exceeds 255 bytes")
		}
		offsets[id] = offset
		n := encodeEntry(buf, e)
		if _, err := f.Write(buf[:n]); err != nil {
			return record.WrapError(record.Resource, "writing lexicon entry", err)
		}
		offset += uint64(n)
	}

	idIndexOffset := offset
	idxBuf := make([]byte, 8)
	for _, off := range offsets {
		binary.LittleEndian.PutUint64(idxBuf, off)
		if _, err := f.Write(idxBuf); err != nil {
			return record.WrapError(record.Resource, "writing lexicon id index", err)
		}
		offset += 8
	}

	type nameEntry struct {
		name string
		id   uint32
	}
	names := make([]nameEntry, len(entries))
	for id, e := range entries {
		names[id] = nameEntry{name: e.Lemma, id: uint32(id)}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].name < names[j].name })

	nameIndexOffset := offset
	bucketCountBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(bucketCountBuf, uint32(len(names)))
	if _, err := f.Write(bucketCountBuf); err != nil {
		return record.WrapError(record.Resource, "writing lexicon name index count", err)
	}
	for _, ne := range names {
		keyLenBuf := make([]byte, 2)
		binary.LittleEndian.PutUint16(keyLenBuf, uint16(len(ne.name)))
		if _, err := f.Write(keyLenBuf); err != nil {
			return record.WrapError(record.Resource, "writing lexicon name index key", err)
		}
		if _, err := f.Write([]byte(ne.name)); err != nil {
			return record.WrapError(record.Resource, "writing lexicon name index key bytes", err)
		}
		idBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(idBuf, ne.id)
		if _, err := f.Write(idBuf); err != nil {
			return record.WrapError(record.Resource, "writing lexicon name index id", err)
		}
	}

	headerBuf := make([]byte, headerSize)
	encodeHeader(headerBuf, uint32(len(entries)), fingerprint, buildTimestamp, idIndexOffset, nameIndexOffset)
	if _, err := f.WriteAt(headerBuf, 0); err != nil {
		return record.WrapError(record.Resource, "writing lexicon header", err)
	}

	if err := f.Sync(); err != nil {
		return record.WrapError(record.Resource, "fsyncing lexicon file", err)
	}
	if err := f.Close(); err != nil {
		return record.WrapError(record.Resource, "closing lexicon file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return record.WrapError(record.Resource, "renaming lexicon file into place", err)
	}
	return nil
}
