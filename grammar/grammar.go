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

// Package grammar loads the grammar configuration: the copular lemma
// list used by the AdjPredicate witness check, and the finite table of
// grammatical relations the query executor gates on. It is a hard
// start-up dependency - the process refuses to start without a valid
// configuration, looked up from a loaded, user-editable table rather
// than a hardcoded switch.
package grammar

import (
	"crypto/sha1"
	"os"
	"strconv"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/czcorpus/collexicon/record"
	"gopkg.in/yaml.v3"
)

// Relation identifies one of the query executor's relational filters.
type Relation string

const (
	RelationNone         Relation = ""
	RelationAdjPredicate Relation = "AdjPredicate"
	RelationAdjModifier  Relation = "AdjModifier"
	RelationSubjectOf    Relation = "SubjectOf"
	RelationObjectOf     Relation = "ObjectOf"
)

// RelationSpec is one configured row of the relation table: an id, the
// POS groups expected on either side, the constraint expression
// applied to the collocate, whether a copular witness is required, and
// a default slop for the companion-index witness/near query.
type RelationSpec struct {
	ID                Relation `yaml:"id"`
	HeadPoSGroup      string   `yaml:"headPosGroup"`
	CollocatePoSGroup string   `yaml:"collocatePosGroup"`
	Constraint        string   `yaml:"constraint"`
	RequiresWitness   bool     `yaml:"requiresWitness"`
	DefaultSlop       int      `yaml:"defaultSlop"`
}

// Config is the loaded grammar configuration: the copular lemma list
// plus the relation table. Immutable once loaded.
type Config struct {
	CopularLemmas []string       `yaml:"copularLemmas"`
	Relations     []RelationSpec `yaml:"relations"`
}

// Load reads and parses a YAML grammar configuration from path.
// A missing or invalid file is a Precondition failure: the
// configuration is a hard start-up dependency.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, record.WrapError(record.Precondition, "reading grammar configuration", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, record.WrapError(record.Precondition, "parsing grammar configuration", err)
	}
	if len(cfg.Relations) == 0 {
		return Config{}, record.NewError(record.Precondition, "grammar configuration declares no relations")
	}
	return cfg, nil
}

// Default ships four predefined relations and default copular verbs,
// used when no configuration file is supplied (e.g. in tests).
func Default() Config {
	return Config{
		CopularLemmas: []string{"be", "seem", "remain", "become"},
		Relations: []RelationSpec{
			{
				ID:                RelationAdjModifier,
				HeadPoSGroup:      string(record.GroupNoun),
				CollocatePoSGroup: string(record.GroupAdj),
				Constraint:        `[pos="JJ"]`,
				RequiresWitness:   false,
				DefaultSlop:       4,
			},
			{
				ID:                RelationAdjPredicate,
				HeadPoSGroup:      string(record.GroupNoun),
				CollocatePoSGroup: string(record.GroupAdj),
				Constraint:        `[pos="JJ"]`,
				RequiresWitness:   true,
				DefaultSlop:       4,
			},
			{
				ID:                RelationSubjectOf,
				HeadPoSGroup:      string(record.GroupVerb),
				CollocatePoSGroup: string(record.GroupNoun),
				Constraint:        `[pos="NN"|pos="NNS"|pos="NNP"]`,
				RequiresWitness:   false,
				DefaultSlop:       4,
			},
			{
				ID:                RelationObjectOf,
				HeadPoSGroup:      string(record.GroupVerb),
				CollocatePoSGroup: string(record.GroupNoun),
				Constraint:        `[pos="NN"|pos="NNS"|pos="NNP"]`,
				RequiresWitness:   false,
				DefaultSlop:       4,
			},
		},
	}
}

// Find returns the configured spec for id, or false if the
// configuration declares no such relation.
func (c Config) Find(id Relation) (RelationSpec, bool) {
	for _, r := range c.Relations {
		if r.ID == id {
			return r, true
		}
	}
	return RelationSpec{}, false
}

// IsCopular reports whether lemma is configured as a copular verb.
func (c Config) IsCopular(lemma string) bool {
	set := collections.NewSet[string]()
	for _, l := range c.CopularLemmas {
		set.Add(l)
	}
	return set.Contains(lemma)
}

// Fingerprint derives a stable [16]byte digest of the configuration's
// content, mixed into a build's fingerprint - see
// collstore.NewBuildFingerprint, which folds this value together with
// a build-time UUID via uuid.NewSHA1.
func (c Config) Fingerprint() [16]byte {
	h := sha1.New()
	for _, l := range c.CopularLemmas {
		h.Write([]byte(l))
		h.Write([]byte{0})
	}
	for _, r := range c.Relations {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		h.Write([]byte(r.HeadPoSGroup))
		h.Write([]byte{0})
		h.Write([]byte(r.CollocatePoSGroup))
		h.Write([]byte{0})
		h.Write([]byte(r.Constraint))
		h.Write([]byte{0})
		if r.RequiresWitness {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		h.Write([]byte(strconv.Itoa(r.DefaultSlop)))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	var fp [16]byte
	copy(fp[:], sum[:16])
	return fp
}
