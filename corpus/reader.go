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

// Package corpus reads a CoNLL-U-like input stream and delivers one
// Sentence at a time to a caller-supplied callback, driving a
// bufio.Scanner over a simple tab-separated, blank-line-delimited
// format.
package corpus

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/czcorpus/collexicon/record"
)

const (
	// scannerBufSize allows for long sentence-text comment lines
	// without truncating the scanner's token.
	scannerBufSize  = 1 << 20
	commentPrefix   = "#"
	textCommentTag  = "# text ="
	numTokenColumns = 10
)

// SentenceFunc receives one fully parsed sentence at a time, in input
// order. Returning an error aborts the scan.
type SentenceFunc func(record.Sentence) error

// Stats tallies what a single Read pass consumed.
type Stats struct {
	Sentences     int64
	Tokens        int64
	SkippedTokens int64 // multi-word token ids, e.g. "4-5"
	UnknownUPoS   int64 // tokens whose UPoS column is outside the fixed Universal POS set
}

// Read scans src for CoNLL-U-like records and calls handler once per
// sentence. A sentence ends at a blank line; comment lines beginning
// with "#" are skipped except for the "# text = ..." form, which
// supplies Sentence.Text. Malformed UTF-8 bytes are replaced rather
// than rejected, tolerating noisy input rather than aborting the scan.
func Read(src io.Reader, handler SentenceFunc) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, scannerBufSize), scannerBufSize)

	var sentID uint64
	var tokens []record.Token
	var text string
	var pos int

	flush := func() error {
		if len(tokens) == 0 {
			text = ""
			return nil
		}
		sentID++
		sent := record.Sentence{ID: sentID, Text: text, Tokens: tokens}
		stats.Sentences++
		stats.Tokens += int64(len(tokens))
		tokens = nil
		text = ""
		pos = 0
		return handler(sent)
	}

	for scanner.Scan() {
		line := toValidUTF8(scanner.Text())

		if line == "" {
			if err := flush(); err != nil {
				return stats, err
			}
			continue
		}

		if strings.HasPrefix(line, commentPrefix) {
			if strings.HasPrefix(line, textCommentTag) {
				text = strings.TrimSpace(line[len(textCommentTag):])
			}
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < numTokenColumns {
			continue
		}
		id := cols[0]
		if strings.Contains(id, "-") {
			stats.SkippedTokens++
			continue
		}
		tok := record.Token{
			Position: pos,
			Surface:  cols[1],
			Lemma:    cols[2],
			UPoS:     cols[3],
			XPoS:     normalizeXPoS(cols[4]),
			Head:     parseHead(cols[6]),
			Deprel:   cols[7],
		}
		if tok.UPoS != "" && !record.ImportPoS(tok.UPoS).IsValid() {
			stats.UnknownUPoS++
		}
		tokens = append(tokens, tok)
		pos++
	}
	if err := scanner.Err(); err != nil {
		return stats, record.WrapError(record.Resource, "reading corpus stream", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

// normalizeXPoS treats the CoNLL-U no-value placeholder "_" as absent,
// so Token.PoSTag() correctly falls back to UPoS.
func normalizeXPoS(v string) string {
	if v == "_" {
		return ""
	}
	return v
}

func parseHead(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// toValidUTF8 replaces invalid byte sequences with the Unicode
// replacement character instead of failing the scan.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
