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

// Package query implements the constraint-language parser, a
// compiled-pattern cache, and the point-query executor that composes
// the precomputed collstore with a compiled pattern and an optional
// grammatical-relation witness check.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/czcorpus/collexicon/record"
)

// Field is one of the constraint language's atom fields. tag is an
// alias of pos - the source corpus format exposes only one POS axis
// per token, so both names resolve to the same value.
type Field string

const (
	FieldLemma Field = "lemma"
	FieldPoS   Field = "pos"
	FieldWord  Field = "word"
	FieldTag   Field = "tag"
)

// Op is an atom's comparison operator.
type Op string

const (
	OpEquals    Op = "="
	OpNotEquals Op = "!="
)

// Atom is one compiled `[field op value]` predicate. A quoted value
// compiles to a regex matcher; an unquoted value compiles to a literal
// equality fast path.
type Atom struct {
	Field Field
	Op    Op
	re    *regexp.Regexp
	lit   string
}

// TokenFields is the single collocate token an Atom/Bracket/Pattern is
// evaluated against.
type TokenFields struct {
	Lemma string
	PoS   string
	Word  string
}

func (a Atom) fieldValue(t TokenFields) string {
	switch a.Field {
	case FieldLemma:
		return t.Lemma
	case FieldPoS, FieldTag:
		return t.PoS
	case FieldWord:
		return t.Word
	default:
		return ""
	}
}

func (a Atom) match(t TokenFields) bool {
	v := strings.ToLower(a.fieldValue(t))
	var eq bool
	if a.re != nil {
		eq = a.re.MatchString(v)
	} else {
		eq = v == a.lit
	}
	if a.Op == OpNotEquals {
		return !eq
	}
	return eq
}

// Bracket is one `[...]` chunk: atoms joined uniformly by `&` or `|`,
// optionally negated as a whole, optionally followed by a `~{min,max}`
// distance modifier (meaningful only against the companion index - the
// precomputed path evaluates a single token and ignores distance).
type Bracket struct {
	Atoms   []Atom
	Joiner  byte // '&' or '|'; zero value for a single-atom bracket
	Negated bool
	HasDist bool
	MinDist int
	MaxDist int
}

// Match evaluates the bracket against a single token's fields.
func (b Bracket) Match(t TokenFields) bool {
	if len(b.Atoms) == 0 {
		return !b.Negated
	}
	result := b.Atoms[0].match(t)
	for _, a := range b.Atoms[1:] {
		v := a.match(t)
		if b.Joiner == '|' {
			result = result || v
		} else {
			result = result && v
		}
	}
	if b.Negated {
		return !result
	}
	return result
}

// Pattern is a parsed constraint-language expression: a space-separated
// sequence of brackets. The precomputed query path only ever evaluates
// Brackets[0] against the single collocate token - later brackets and
// distance modifiers describe a multi-token sequence that is only
// meaningful when re-run against the companion index for
// witness/concordance purposes.
type Pattern struct {
	Source   string
	Brackets []Bracket
}

// Match evaluates the pattern's first bracket against a single
// collocate token.
func (p *Pattern) Match(t TokenFields) bool {
	if len(p.Brackets) == 0 {
		return true
	}
	return p.Brackets[0].Match(t)
}

// Parse compiles source into a Pattern. It distinguishes `|` inside
// quotes (regex alternation, stays in the value) from `|` outside
// quotes (logical OR between atoms).
func Parse(source string) (*Pattern, error) {
	brackets, err := splitBrackets(source)
	if err != nil {
		return nil, err
	}
	p := &Pattern{Source: source}
	for _, raw := range brackets {
		b, err := parseBracket(raw)
		if err != nil {
			return nil, err
		}
		p.Brackets = append(p.Brackets, b)
	}
	return p, nil
}

// splitBrackets splits source into raw `[...]` chunks (each possibly
// prefixed with `!` and suffixed with a `~{min,max}` modifier),
// tolerating quoted content containing spaces or brackets.
func splitBrackets(source string) ([]string, error) {
	var chunks []string
	inQuote := false
	depth := 0
	start := -1
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
			// quoted content never changes bracket/space structure
		case c == '[':
			if depth == 0 {
				start = i
				if i > 0 && source[i-1] == '!' {
					start = i - 1
				}
			}
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				end := i + 1
				// absorb a trailing ~{min,max} distance modifier
				for end < len(source) && source[end] != ' ' && source[end] != '[' {
					end++
				}
				chunks = append(chunks, source[start:end])
				i = end - 1
			}
		}
	}
	if depth != 0 {
		return nil, record.NewError(record.InvalidInput, "unbalanced brackets in pattern: "+source)
	}
	if len(chunks) == 0 {
		return nil, record.NewError(record.InvalidInput, "pattern has no bracket: "+source)
	}
	return chunks, nil
}

func parseBracket(raw string) (Bracket, error) {
	var b Bracket
	s := raw
	if strings.HasPrefix(s, "!") {
		b.Negated = true
		s = s[1:]
	}
	open := strings.IndexByte(s, '[')
	closeIdx := strings.LastIndexByte(s, ']')
	if open != 0 || closeIdx < 0 {
		return Bracket{}, record.NewError(record.InvalidInput, "malformed bracket: "+raw)
	}
	body := s[open+1 : closeIdx]
	tail := s[closeIdx+1:]
	if tail != "" {
		minD, maxD, err := parseDistance(tail)
		if err != nil {
			return Bracket{}, err
		}
		b.HasDist = true
		b.MinDist, b.MaxDist = minD, maxD
	}

	parts, joiner, err := splitAtoms(body)
	if err != nil {
		return Bracket{}, err
	}
	b.Joiner = joiner
	for _, part := range parts {
		a, err := parseAtom(part)
		if err != nil {
			return Bracket{}, err
		}
		b.Atoms = append(b.Atoms, a)
	}
	return b, nil
}

// splitAtoms splits a bracket's body on a single top-level joiner ('&'
// or '|'), never splitting inside a double-quoted value.
func splitAtoms(body string) ([]string, byte, error) {
	var parts []string
	var joiner byte
	inQuote := false
	start := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == '&' || c == '|'):
			if joiner != 0 && joiner != c {
				return nil, 0, record.NewError(record.InvalidInput, "mixed & and | inside one bracket is not supported: "+body)
			}
			joiner = c
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	parts = append(parts, body[start:])
	return parts, joiner, nil
}

func parseAtom(src string) (Atom, error) {
	src = strings.TrimSpace(src)
	var op Op
	idx := strings.Index(src, "!=")
	if idx >= 0 {
		op = OpNotEquals
	} else {
		idx = strings.IndexByte(src, '=')
		if idx < 0 {
			return Atom{}, record.NewError(record.InvalidInput, "atom missing operator: "+src)
		}
		op = OpEquals
	}
	field := Field(strings.TrimSpace(src[:idx]))
	switch field {
	case FieldLemma, FieldPoS, FieldWord, FieldTag:
	default:
		return Atom{}, record.NewError(record.InvalidInput, "unknown field: "+string(field))
	}

	valStart := idx + len(string(op))
	value := strings.TrimSpace(src[valStart:])

	a := Atom{Field: field, Op: op}
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) && len(value) >= 2 {
		inner := value[1 : len(value)-1]
		re, err := regexp.Compile("(?i)^(?:" + inner + ")$")
		if err != nil {
			return Atom{}, record.WrapError(record.InvalidInput, "invalid regex value: "+inner, err)
		}
		a.re = re
	} else {
		a.lit = strings.ToLower(value)
	}
	return a, nil
}

func parseDistance(tail string) (int, int, error) {
	if !strings.HasPrefix(tail, "~{") || !strings.HasSuffix(tail, "}") {
		return 0, 0, record.NewError(record.InvalidInput, "malformed distance modifier: "+tail)
	}
	body := tail[2 : len(tail)-1]
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return 0, 0, record.NewError(record.InvalidInput, "malformed distance modifier: "+tail)
	}
	minD, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, record.WrapError(record.InvalidInput, "malformed distance modifier min", err)
	}
	maxD, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, record.WrapError(record.InvalidInput, "malformed distance modifier max", err)
	}
	return minD, maxD, nil
}
