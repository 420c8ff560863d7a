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

import "fmt"

// Token is a single annotated position within a Sentence, as consumed
// from the CoNLL-U-like input record: only word, lemma, upos and xpos
// are kept, plus the head/deprel needed for relation gating.
type Token struct {
	Position    int
	Surface     string
	Lemma       string
	UPoS        string
	XPoS        string
	StartOffset int
	EndOffset   int
	Head        int
	Deprel      string
}

// PoSTag is the consumed POS: XPOS if present, else UPOS.
func (t Token) PoSTag() string {
	if t.XPoS != "" {
		return t.XPoS
	}
	return t.UPoS
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%d: %s/%s)", t.Position, t.Surface, t.PoSTag())
}

// Sentence is an independently processed unit: no pair is ever
// generated across a Sentence boundary.
type Sentence struct {
	ID     uint64
	Text   string
	Tokens []Token
}

func (s Sentence) String() string {
	return fmt.Sprintf("Sentence(id=%d, %d tokens)", s.ID, len(s.Tokens))
}
