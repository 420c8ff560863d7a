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

package record

import "strings"

// PosGroup is the coarse classification of the external interface:
// every UPOS tag collapses into exactly one of these groups.
type PosGroup string

const (
	GroupNoun  PosGroup = "noun"
	GroupVerb  PosGroup = "verb"
	GroupAdj   PosGroup = "adj"
	GroupAdv   PosGroup = "adv"
	GroupPrep  PosGroup = "prep"
	GroupDet   PosGroup = "det"
	GroupConj  PosGroup = "conj"
	GroupPunct PosGroup = "punct"
	GroupNum   PosGroup = "num"
	GroupIntj  PosGroup = "intj"
	GroupPart  PosGroup = "part"
	GroupOther PosGroup = "other"
)

// posGroupMapping is a plain string -> PosGroup lookup table, keyed by
// UPOS tag since the coarse grouping is a pure string->string
// classification applied once per token at import time.
type posGroupMapping map[string]PosGroup

func (m posGroupMapping) Group(upos string) PosGroup {
	g, ok := m[strings.ToUpper(upos)]
	if !ok {
		return GroupOther
	}
	return g
}

var UPoSGroupMapping = posGroupMapping{
	"NOUN":  GroupNoun,
	"PROPN": GroupNoun,
	"VERB":  GroupVerb,
	"AUX":   GroupVerb,
	"ADJ":   GroupAdj,
	"ADV":   GroupAdv,
	"ADP":   GroupPrep,
	"DET":   GroupDet,
	"CCONJ": GroupConj,
	"SCONJ": GroupConj,
	"PUNCT": GroupPunct,
	"NUM":   GroupNum,
	"INTJ":  GroupIntj,
	"PART":  GroupPart,
	"PRON":  GroupOther,
	"SYM":   GroupOther,
	"X":     GroupOther,
}

// GroupOf derives a token's coarse POS-group straight from its UPOS tag.
func GroupOf(upos string) PosGroup {
	return UPoSGroupMapping.Group(upos)
}

// groupByteOrder fixes the dense single-byte encoding used by the
// lexicon's per-lemma DominantPoSGroup field (lexicon.Entry).
var groupByteOrder = []PosGroup{
	GroupNoun, GroupVerb, GroupAdj, GroupAdv, GroupPrep,
	GroupDet, GroupConj, GroupPunct, GroupNum, GroupIntj,
	GroupPart, GroupOther,
}

// Byte encodes g as its dense position in groupByteOrder, falling back
// to GroupOther's code for any value outside the fixed set.
func (g PosGroup) Byte() byte {
	for i, v := range groupByteOrder {
		if v == g {
			return byte(i)
		}
	}
	return byte(len(groupByteOrder) - 1)
}

// GroupFromByte reverses PosGroup.Byte.
func GroupFromByte(v byte) PosGroup {
	if int(v) < len(groupByteOrder) {
		return groupByteOrder[v]
	}
	return GroupOther
}
