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

import (
	"strings"
)

// PoS wraps a Universal Dependencies POS tag together with its dense
// byte code. Readable is always the original tag as seen in the input;
// Raw is zero for tags outside the fixed UPOS set.
type PoS struct {
	Readable string
	Raw      byte
}

func (p PoS) Byte() byte {
	return p.Raw
}

func (p PoS) String() string {
	return p.Readable
}

func (p PoS) IsValid() bool {
	return p.Raw >= 0x01 && p.Raw <= 0x11
}

// ImportPoS maps an UPOS string (case-insensitively) to its dense code.
// Unknown tags get Raw=0 but keep the original string for diagnostics.
func ImportPoS(v string) PoS {
	repr, ok := UPoSMapping[strings.ToUpper(v)]
	if !ok {
		return PoS{Raw: 0x00, Readable: v}
	}
	return PoS{Raw: repr, Readable: v}
}

const (
	PosADJ   = 0x01
	PosADP   = 0x02
	PosADV   = 0x03
	PosAUX   = 0x04
	PosCCONJ = 0x05
	PosDET   = 0x06
	PosINTJ  = 0x07
	PosNOUN  = 0x08
	PosNUM   = 0x09
	PosPRON  = 0x0a
	PosPROPN = 0x0b
	PosPUNCT = 0x0c
	PosSCONJ = 0x0d
	PosSYM   = 0x0e
	PosVERB  = 0x0f
	PosX     = 0x10
	PosPART  = 0x11
)

// upOSMapping is a plain string -> byte lookup table, narrowed to the
// 17-tag Universal POS set that ImportPoS validates corpus UPoS
// columns against.
type upOSMapping map[string]byte

var UPoSMapping = upOSMapping{
	"ADJ":   PosADJ,
	"ADP":   PosADP,
	"ADV":   PosADV,
	"AUX":   PosAUX,
	"CCONJ": PosCCONJ,
	"DET":   PosDET,
	"INTJ":  PosINTJ,
	"NOUN":  PosNOUN,
	"NUM":   PosNUM,
	"PRON":  PosPRON,
	"PROPN": PosPROPN,
	"PUNCT": PosPUNCT,
	"SCONJ": PosSCONJ,
	"SYM":   PosSYM,
	"VERB":  PosVERB,
	"X":     PosX,
	"PART":  PosPART,
}
