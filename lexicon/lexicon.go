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

// Package lexicon assigns dense ids to corpus lemmas, tallies their
// frequency and dominant POS tag, and serializes the result into the
// companion file consumed by the merger and the query executor.
package lexicon

import (
	"encoding/binary"

	"github.com/czcorpus/collexicon/record"
)

// Entry is one finalized lexicon record. DominantPoS is the dominant
// tag as it actually occurred in the corpus (XPOS-preferred, matching
// what ends up in a CollocateRecord.CollPoS for pattern matching);
// DominantPoSGroup is the coarse UPOS-derived classification tallied
// independently, since a corpus's XPOS tagset need not align with the
// fixed UPOS set record.GroupOf expects.
type Entry struct {
	Lemma            string
	Freq             uint64
	DominantPoS      string
	DominantPoSGroup record.PosGroup
}

const (
	fileMagic   = "LEXC"
	fileVersion = uint32(1)

	// headerSize: magic(4) + version(4) + entry_count(4) + build_uuid(16)
	// + build_timestamp(8) + id_index_offset(8) + name_index_offset(8)
	headerSize = 4 + 4 + 4 + 16 + 8 + 8 + 8
)

func encodeHeader(buf []byte, entryCount uint32, buildUUID [16]byte, buildTimestamp int64, idIndexOffset, nameIndexOffset uint64) {
	copy(buf[0:4], fileMagic)
	binary.LittleEndian.PutUint32(buf[4:8], fileVersion)
	binary.LittleEndian.PutUint32(buf[8:12], entryCount)
	copy(buf[12:28], buildUUID[:])
	binary.LittleEndian.PutUint64(buf[28:36], uint64(buildTimestamp))
	binary.LittleEndian.PutUint64(buf[36:44], idIndexOffset)
	binary.LittleEndian.PutUint64(buf[44:52], nameIndexOffset)
}

type header struct {
	entryCount      uint32
	buildUUID       [16]byte
	buildTimestamp  int64
	idIndexOffset   uint64
	nameIndexOffset uint64
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < headerSize {
		return h, record.NewError(record.Corrupt, "lexicon header truncated")
	}
	if string(buf[0:4]) != fileMagic {
		return h, record.NewError(record.Corrupt, "bad lexicon file magic")
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != fileVersion {
		return h, record.NewError(record.Corrupt, "unsupported lexicon file version")
	}
	h.entryCount = binary.LittleEndian.Uint32(buf[8:12])
	copy(h.buildUUID[:], buf[12:28])
	h.buildTimestamp = int64(binary.LittleEndian.Uint64(buf[28:36]))
	h.idIndexOffset = binary.LittleEndian.Uint64(buf[36:44])
	h.nameIndexOffset = binary.LittleEndian.Uint64(buf[44:52])
	return h, nil
}

// encodeEntry appends one (lemma, freq, dominant_pos, dominant_pos_group)
// record and returns the number of bytes written.
func encodeEntry(buf []byte, e Entry) int {
	n := 0
	binary.LittleEndian.PutUint16(buf[n:], uint16(len(e.Lemma)))
	n += 2
	n += copy(buf[n:], e.Lemma)
	binary.LittleEndian.PutUint64(buf[n:], e.Freq)
	n += 8
	buf[n] = byte(len(e.DominantPoS))
	n++
	n += copy(buf[n:], e.DominantPoS)
	buf[n] = e.DominantPoSGroup.Byte()
	n++
	return n
}

func encodedEntrySize(e Entry) int {
	return 2 + len(e.Lemma) + 8 + 1 + len(e.DominantPoS) + 1
}

// decodeEntry reads one record starting at buf[0] and returns it along
// with the number of bytes consumed.
func decodeEntry(buf []byte) (Entry, int, error) {
	if len(buf) < 2 {
		return Entry{}, 0, record.NewError(record.Corrupt, "lexicon entry truncated (lemma len)")
	}
	lemmaLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	n := 2
	if len(buf) < n+lemmaLen+8+1 {
		return Entry{}, 0, record.NewError(record.Corrupt, "lexicon entry truncated (lemma/freq)")
	}
	lemma := string(buf[n : n+lemmaLen])
	n += lemmaLen
	freq := binary.LittleEndian.Uint64(buf[n : n+8])
	n += 8
	posLen := int(buf[n])
	n++
	if len(buf) < n+posLen+1 {
		return Entry{}, 0, record.NewError(record.Corrupt, "lexicon entry truncated (pos)")
	}
	pos := string(buf[n : n+posLen])
	n += posLen
	group := record.GroupFromByte(buf[n])
	n++
	return Entry{Lemma: lemma, Freq: freq, DominantPoS: pos, DominantPoSGroup: group}, n, nil
}
