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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleEquality(t *testing.T) {
	p, err := Parse(`[pos="JJ"]`)
	require.NoError(t, err)
	assert.True(t, p.Match(TokenFields{PoS: "JJ"}))
	assert.False(t, p.Match(TokenFields{PoS: "NN"}))
}

func TestParseQuotedRegexAlternationInsideValue(t *testing.T) {
	p, err := Parse(`[word="be|remain|seem"]`)
	require.NoError(t, err)
	assert.True(t, p.Match(TokenFields{Word: "be"}))
	assert.True(t, p.Match(TokenFields{Word: "seem"}))
	assert.False(t, p.Match(TokenFields{Word: "run"}))
}

func TestParseFieldLevelDisjunctionOutsideQuotes(t *testing.T) {
	p, err := Parse(`[tag="JJ"|tag="RB"]`)
	require.NoError(t, err)
	require.Len(t, p.Brackets, 1)
	require.Len(t, p.Brackets[0].Atoms, 2)
	assert.True(t, p.Match(TokenFields{PoS: "JJ"}))
	assert.True(t, p.Match(TokenFields{PoS: "RB"}))
	assert.False(t, p.Match(TokenFields{PoS: "NN"}))
}

func TestParseConjunction(t *testing.T) {
	p, err := Parse(`[pos="JJ"&lemma=good]`)
	require.NoError(t, err)
	assert.True(t, p.Match(TokenFields{PoS: "JJ", Lemma: "good"}))
	assert.False(t, p.Match(TokenFields{PoS: "JJ", Lemma: "bad"}))
}

func TestParseNegation(t *testing.T) {
	p, err := Parse(`![pos="JJ"]`)
	require.NoError(t, err)
	assert.False(t, p.Match(TokenFields{PoS: "JJ"}))
	assert.True(t, p.Match(TokenFields{PoS: "NN"}))
}

func TestParseNotEquals(t *testing.T) {
	p, err := Parse(`[pos!="JJ"]`)
	require.NoError(t, err)
	assert.False(t, p.Match(TokenFields{PoS: "JJ"}))
	assert.True(t, p.Match(TokenFields{PoS: "NN"}))
}

func TestParseUnquotedLiteralIsCaseInsensitive(t *testing.T) {
	p, err := Parse(`[lemma=Dog]`)
	require.NoError(t, err)
	assert.True(t, p.Match(TokenFields{Lemma: "dog"}))
	assert.True(t, p.Match(TokenFields{Lemma: "DOG"}))
}

func TestParseSequenceWithDistanceModifier(t *testing.T) {
	p, err := Parse(`[pos="JJ"] [pos="NN"]~{1,3}`)
	require.NoError(t, err)
	require.Len(t, p.Brackets, 2)
	assert.True(t, p.Brackets[1].HasDist)
	assert.Equal(t, 1, p.Brackets[1].MinDist)
	assert.Equal(t, 3, p.Brackets[1].MaxDist)
}

func TestParseUnbalancedBracketsIsError(t *testing.T) {
	_, err := Parse(`[pos="JJ"`)
	assert.Error(t, err)
}

func TestParseUnknownFieldIsError(t *testing.T) {
	_, err := Parse(`[color=red]`)
	assert.Error(t, err)
}

func TestParseMixedJoinersRejected(t *testing.T) {
	_, err := Parse(`[pos="JJ"&lemma=good|word=fast]`)
	assert.Error(t, err)
}

func TestEmptyPatternMatchesEverything(t *testing.T) {
	p := &Pattern{}
	assert.True(t, p.Match(TokenFields{Lemma: "anything"}))
}
