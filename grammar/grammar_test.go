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

package grammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDeclaresAllRelations(t *testing.T) {
	cfg := Default()
	for _, id := range []Relation{RelationAdjPredicate, RelationAdjModifier, RelationSubjectOf, RelationObjectOf} {
		_, ok := cfg.Find(id)
		assert.True(t, ok, "missing relation %s", id)
	}
}

func TestIsCopular(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IsCopular("be"))
	assert.False(t, cfg.IsCopular("run"))
}

func TestFingerprintStableAndDistinguishing(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := a
	c.CopularLemmas = append([]string{"exist"}, a.CopularLemmas...)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsEmptyRelations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grammar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("copularLemmas: [be]\nrelations: []\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadParsesRelationTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grammar.yaml")
	content := `
copularLemmas:
  - be
  - seem
relations:
  - id: AdjPredicate
    headPosGroup: noun
    collocatePosGroup: adj
    constraint: '[pos="JJ"]'
    requiresWitness: true
    defaultSlop: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"be", "seem"}, cfg.CopularLemmas)
	require.Len(t, cfg.Relations, 1)
	assert.Equal(t, RelationAdjPredicate, cfg.Relations[0].ID)
	assert.True(t, cfg.Relations[0].RequiresWitness)
}
