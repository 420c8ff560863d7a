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

// CompanionIndex is the capability the executor needs from an
// external full-text inverted index. The concrete implementation lives
// outside this module; query only depends on this small interface, so
// unit tests can supply MockIndex instead of a real index.
type CompanionIndex interface {
	// DocFreq returns the number of documents containing lemma.
	DocFreq(lemma string) (uint64, error)

	// Near reports whether any sentence contains lemmaA and lemmaB
	// within slop tokens of each other. The AdjPredicate witness check
	// composes two Near calls (head-to-copula, copula-to-collocate)
	// rather than asking the index for a three-lemma proximity, so a
	// single two-lemma capability is all CompanionIndex needs to expose.
	Near(lemmaA, lemmaB string, slop int) (bool, error)
}

// MockIndex is a CompanionIndex backed by an explicit set of witness
// pairs, for unit tests that exercise relation gating without building
// a real inverted index.
type MockIndex struct {
	Witnesses map[[2]string]bool
	DocFreqs  map[string]uint64
}

// NewMockIndex creates an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{Witnesses: make(map[[2]string]bool), DocFreqs: make(map[string]uint64)}
}

// AllowWitness registers (lemmaA, lemmaB) as occurring near each other.
func (m *MockIndex) AllowWitness(lemmaA, lemmaB string) {
	m.Witnesses[[2]string{lemmaA, lemmaB}] = true
}

func (m *MockIndex) DocFreq(lemma string) (uint64, error) {
	return m.DocFreqs[lemma], nil
}

func (m *MockIndex) Near(lemmaA, lemmaB string, slop int) (bool, error) {
	return m.Witnesses[[2]string{lemmaA, lemmaB}], nil
}
