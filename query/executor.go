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

package query

import (
	"sort"
	"strings"
	"sync"

	"github.com/czcorpus/collexicon/collstore"
	"github.com/czcorpus/collexicon/grammar"
	"github.com/czcorpus/collexicon/merge"
	"github.com/czcorpus/collexicon/record"
)

// Options bounds one lookup, built via functional options.
type Options struct {
	MinLogDice float64
	MaxResults int
	Relation   grammar.Relation
}

// Option mutates Options; the default Options zero value already means
// "no relation, no floor". Lookup starts from MaxResults = 50 when no
// option sets it; an explicit WithMaxResults(0) yields no rows.
type Option func(*Options)

func WithMinLogDice(v float64) Option {
	return func(o *Options) { o.MinLogDice = v }
}

func WithMaxResults(n int) Option {
	return func(o *Options) { o.MaxResults = n }
}

func WithRelation(r grammar.Relation) Option {
	return func(o *Options) { o.Relation = r }
}

// WithNOP sets no option - a convenience for call sites that build up
// a slice of conditional options.
func WithNOP() Option {
	return func(o *Options) {}
}

const defaultMaxResults = 50

// Row is one returned collocate.
type Row struct {
	CollLemma    string
	CollPoS      string
	Cooccurrence uint64
	LogDice      float64
	RelativeFreq float64

	collTotalFreq uint64
	headTotalFreq uint64
}

// Executor answers point collocation queries against a published
// store, composing it with a compiled constraint pattern and an
// optional grammatical-relation witness check.
type Executor struct {
	store   *collstore.Reader
	grammar grammar.Config
	index   CompanionIndex

	mu    sync.Mutex
	cache map[string]*Pattern
}

// NewExecutor builds an Executor over store, gated by cfg's relation
// table. index may be nil if no relation requiring a witness check
// will ever be requested - Lookup reports Precondition if one is.
func NewExecutor(store *collstore.Reader, cfg grammar.Config, index CompanionIndex) *Executor {
	return &Executor{store: store, grammar: cfg, index: index, cache: make(map[string]*Pattern)}
}

func (e *Executor) compile(patternSrc string) (*Pattern, error) {
	if patternSrc == "" {
		return &Pattern{Source: ""}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[patternSrc]; ok {
		return p, nil
	}
	p, err := Parse(patternSrc)
	if err != nil {
		return nil, err
	}
	e.cache[patternSrc] = p
	return p, nil
}

// Lookup resolves the entry, filters by the compiled pattern,
// optionally gates by a relation's witness check, drops rows below
// minLogDice, then truncates to maxResults.
func (e *Executor) Lookup(head, patternSrc string, opts ...Option) ([]Row, error) {
	o := Options{MaxResults: defaultMaxResults}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxResults == 0 {
		return nil, nil
	}

	entry, ok, err := e.store.Get(strings.ToLower(head))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var spec grammar.RelationSpec
	var relPattern *Pattern
	if o.Relation != grammar.RelationNone {
		var found bool
		spec, found = e.grammar.Find(o.Relation)
		if !found {
			return nil, record.NewError(record.InvalidInput, "unknown relation: "+string(o.Relation))
		}
		if spec.RequiresWitness && e.index == nil {
			return nil, record.NewError(record.Precondition, "relation requires a companion index but none was configured")
		}
		// A relation carries its own PoS-group constraint; a
		// caller-supplied pattern narrows it further, an absent one
		// defers entirely to the relation's configured constraint.
		relPattern, err = e.compile(spec.Constraint)
		if err != nil {
			return nil, err
		}
	}

	pattern, err := e.compile(patternSrc)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(entry.Collocates))
	for _, c := range entry.Collocates {
		fields := TokenFields{Lemma: c.CollLemma, PoS: c.CollPoS, Word: c.CollLemma}
		if !pattern.Match(fields) {
			continue
		}
		if relPattern != nil && !relPattern.Match(fields) {
			continue
		}
		if spec.RequiresWitness {
			witnessed, err := e.hasWitness(head, c.CollLemma, spec.DefaultSlop)
			if err != nil {
				return nil, err
			}
			if !witnessed {
				continue
			}
		}
		if float64(c.LogDice) < o.MinLogDice {
			continue
		}
		rows = append(rows, Row{
			CollLemma:     c.CollLemma,
			CollPoS:       c.CollPoS,
			Cooccurrence:  c.Cooccurrence,
			LogDice:       float64(c.LogDice),
			RelativeFreq:  float64(c.Cooccurrence) / float64(entry.HeadTotalFreq),
			collTotalFreq: c.CollTotalFreq,
			headTotalFreq: entry.HeadTotalFreq,
		})
		if len(rows) >= o.MaxResults {
			break
		}
	}
	return rows, nil
}

// hasWitness calls back into the companion index once per surviving
// collocate, trying each configured copular lemma in turn: a witness
// exists for a copula if head and collLemma both occur near it, within
// slop, composed from two two-lemma Near calls rather than a single
// three-lemma query.
func (e *Executor) hasWitness(head, collLemma string, slop int) (bool, error) {
	for _, copular := range e.grammar.CopularLemmas {
		headNear, err := e.index.Near(head, copular, slop)
		if err != nil {
			return false, record.WrapError(record.Resource, "querying companion index witness", err)
		}
		if !headNear {
			continue
		}
		collNear, err := e.index.Near(copular, collLemma, slop)
		if err != nil {
			return false, record.WrapError(record.Resource, "querying companion index witness", err)
		}
		if collNear {
			return true, nil
		}
	}
	return false, nil
}

// Rank recomputes rows under an alternative association measure,
// never mutating the store's own logDice-sorted order - a purely
// informational re-scoring for callers who want tscore/lmi/ll/rrf
// instead of the default logDice.
func (e *Executor) Rank(rows []Row, measure string) map[string]float64 {
	if measure == "rrf" {
		return e.rankRRF(rows)
	}
	scores := make(map[string]float64, len(rows))
	corpusSize := e.store.TotalCorpusTokens()
	for _, r := range rows {
		switch measure {
		case "tscore":
			scores[r.CollLemma] = merge.TScore(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq)
		case "lmi":
			scores[r.CollLemma] = merge.LMI(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq, corpusSize)
		case "ll":
			scores[r.CollLemma] = merge.LogLikelihood(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq, corpusSize)
		default:
			scores[r.CollLemma] = r.LogDice
		}
	}
	return scores
}

// rankRRF fuses the logDice/tscore/lmi/ll rankings via merge.RRF,
// keyed on each collocate's CollocateRecord.Hash() (not CollLemma
// alone) so fusion still joins the same collocate correctly if two
// collocates ever share a lemma under different POS tags.
func (e *Executor) rankRRF(rows []Row) map[string]float64 {
	corpusSize := e.store.TotalCorpusTokens()
	hashToLemma := make(map[string]string, len(rows))
	type scored struct {
		hash  string
		value float64
	}
	byMeasure := make([][]scored, 4)
	for _, r := range rows {
		hash := record.CollocateRecord{CollLemma: r.CollLemma, CollPoS: r.CollPoS}.Hash()
		hashToLemma[hash] = r.CollLemma
		byMeasure[0] = append(byMeasure[0], scored{hash, r.LogDice})
		byMeasure[1] = append(byMeasure[1], scored{hash, merge.TScore(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq)})
		byMeasure[2] = append(byMeasure[2], scored{hash, merge.LMI(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq, corpusSize)})
		byMeasure[3] = append(byMeasure[3], scored{hash, merge.LogLikelihood(r.Cooccurrence, r.headTotalFreq, r.collTotalFreq, corpusSize)})
	}

	rankedIDs := make([][]string, len(byMeasure))
	for i, ranking := range byMeasure {
		sort.Slice(ranking, func(a, b int) bool { return ranking[a].value > ranking[b].value })
		ids := make([]string, len(ranking))
		for j, s := range ranking {
			ids[j] = s.hash
		}
		rankedIDs[i] = ids
	}

	fused := merge.RRF(rankedIDs)
	out := make(map[string]float64, len(fused))
	for hash, score := range fused {
		out[hashToLemma[hash]] = score
	}
	return out
}
