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

// Fast formatting helpers avoiding fmt.Sprintf for PairKey.String and
// the fingerprint rendering used in build-fingerprint mismatch
// diagnostics - called often enough in debug logging that a
// formatting-verb-free render is worth the few extra lines.

// HexByte renders a single byte as two lowercase hex digits.
func HexByte(b byte) string {
	buf := [2]byte{hexChar(b >> 4), hexChar(b & 0xF)}
	return string(buf[:])
}

func hexChar(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + b - 10
}

// FingerprintHex renders a 16-byte build fingerprint as a 32-character
// lowercase hex string, used by build-fingerprint mismatch diagnostics
// so an operator can compare a store's and a lexicon's build identity
// at a glance.
func FingerprintHex(fp [16]byte) string {
	var sb strings.Builder
	sb.Grow(32)
	for _, b := range fp {
		sb.WriteString(HexByte(b))
	}
	return sb.String()
}

// Uitoa is a fast unsigned integer to string conversion avoiding the
// strconv/fmt package's formatting-verb overhead for a plain base-10
// render.
func Uitoa(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte(u%10) + '0'
		u /= 10
	}
	return string(buf[i:])
}
