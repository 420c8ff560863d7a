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

// lookup answers a single point collocation query against a finalized
// store: flag parsing, a fatih/color + rodaine/table rendering, an
// optional JSON-lines mode. It does not offer a REPL - the CLI
// contract of the store is one query per invocation.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/collexicon/collstore"
	"github.com/czcorpus/collexicon/grammar"
	"github.com/czcorpus/collexicon/lexicon"
	"github.com/czcorpus/collexicon/query"
	"github.com/czcorpus/collexicon/record"
	"github.com/fatih/color"
	"github.com/rodaine/table"
)

func exitWithFailure(kind record.Kind, context string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %s: %s: %s\n", kind, context, err)
	} else {
		fmt.Fprintf(os.Stderr, "FAILED: %s: %s\n", kind, context)
	}
	switch kind {
	case record.InvalidInput:
		os.Exit(2)
	case record.Precondition:
		os.Exit(3)
	case record.Corrupt:
		os.Exit(5)
	default:
		os.Exit(4)
	}
}

func exitOnError(context string, err error) {
	var rerr *record.Error
	if errors.As(err, &rerr) {
		exitWithFailure(rerr.Kind, context, err)
	}
	exitWithFailure(record.Resource, context, err)
}

type jsonRow struct {
	CollLemma    string   `json:"collLemma"`
	CollPoS      string   `json:"collPos"`
	Cooccurrence uint64   `json:"cooccurrence"`
	LogDice      float64  `json:"logDice"`
	RelativeFreq float64  `json:"relativeFreq"`
	Score        *float64 `json:"score,omitempty"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "lookup - query a finalized collocation store for one head lemma\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [options]\n\nOptions:\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	storePath := flag.String("store", "", "path to the finalized collocation store")
	lexiconPath := flag.String("lexicon", "", "path to the store's companion lexicon (for fingerprint verification)")
	head := flag.String("head", "", "head lemma to look up")
	pattern := flag.String("pattern", "", "constraint-language pattern restricting returned collocates")
	minLogDice := flag.Float64("min-logdice", 0, "drop collocates below this logDice score")
	limit := flag.Int("limit", 10, "max number of collocates to return")
	relation := flag.String("relation", "", "grammatical relation to gate by (e.g. AdjPredicate)")
	measure := flag.String("measure", "", "re-rank results by an alternative association measure (tscore, lmi, ll, rrf); default keeps the store's own logDice order")
	grammarConfig := flag.String("grammar", "", "path to the grammar configuration YAML (defaults built in if omitted)")
	jsonOut := flag.Bool("json-out", false, "if set, print one JSON object per line instead of a table")
	logLevel := flag.String("log-level", "info", "set log level (debug, info, warn, error)")
	flag.Parse()

	logging.SetupLogging(logging.LoggingConf{Level: logging.LogLevel(*logLevel)})

	if *storePath == "" || *lexiconPath == "" || *head == "" {
		exitWithFailure(record.InvalidInput, "--store, --lexicon and --head are required", nil)
	}

	var gcfg grammar.Config
	if *grammarConfig != "" {
		var err error
		gcfg, err = grammar.Load(*grammarConfig)
		if err != nil {
			exitOnError("loading grammar configuration", err)
		}
	} else {
		gcfg = grammar.Default()
	}

	// the store is self-sufficient for point lookups; the lexicon is
	// opened only to read the fingerprint the store must match.
	lex, err := lexicon.Open(*lexiconPath)
	if err != nil {
		exitOnError("opening lexicon", err)
	}
	fingerprint := lex.Fingerprint()
	lex.Close()

	store, err := collstore.Open(*storePath, fingerprint)
	if err != nil {
		exitOnError("opening store", err)
	}
	defer store.Close()

	ex := query.NewExecutor(store, gcfg, nil)

	var opts []query.Option
	opts = append(opts, query.WithMinLogDice(*minLogDice), query.WithMaxResults(*limit))
	if *relation != "" {
		opts = append(opts, query.WithRelation(grammar.Relation(*relation)))
	}

	rows, err := ex.Lookup(*head, *pattern, opts...)
	if err != nil {
		exitOnError("running lookup", err)
	}

	var scores map[string]float64
	if *measure != "" {
		scores = ex.Rank(rows, *measure)
		sort.SliceStable(rows, func(i, j int) bool {
			return scores[rows[i].CollLemma] > scores[rows[j].CollLemma]
		})
	}

	if *jsonOut {
		for _, r := range rows {
			jr := jsonRow{
				CollLemma:    r.CollLemma,
				CollPoS:      r.CollPoS,
				Cooccurrence: r.Cooccurrence,
				LogDice:      r.LogDice,
				RelativeFreq: r.RelativeFreq,
			}
			if scores != nil {
				s := scores[r.CollLemma]
				jr.Score = &s
			}
			out, err := json.Marshal(jr)
			if err != nil {
				exitWithFailure(record.InvalidInput, "json-encoding result row", err)
			}
			fmt.Println(string(out))
		}
		return
	}

	if len(rows) == 0 {
		fmt.Println("-- NO RESULT --")
		return
	}

	headerFmt := color.New(color.FgGreen).SprintfFunc()
	columnFmt := color.New(color.FgHiMagenta).SprintfFunc()
	if scores != nil {
		tbl := table.New("collocate", "PoS", "cooccurrence", "log-dice", "rel. freq.", *measure)
		tbl.
			WithHeaderFormatter(headerFmt).
			WithFirstColumnFormatter(columnFmt).
			WithHeaderSeparatorRow('═')
		for _, r := range rows {
			tbl.AddRow(r.CollLemma, r.CollPoS, r.Cooccurrence, r.LogDice, r.RelativeFreq, scores[r.CollLemma])
		}
		tbl.Print()
		return
	}

	tbl := table.New("collocate", "PoS", "cooccurrence", "log-dice", "rel. freq.")
	tbl.
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt).
		WithHeaderSeparatorRow('═')
	for _, r := range rows {
		tbl.AddRow(r.CollLemma, r.CollPoS, r.Cooccurrence, r.LogDice, r.RelativeFreq)
	}
	tbl.Print()
}
