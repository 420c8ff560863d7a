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

// Kind classifies a failure: every internal error propagates with its
// kind and a human-readable context, never silently downgraded.
type Kind int

const (
	InvalidInput Kind = iota + 1
	Precondition
	Corrupt
	Resource
	Transient
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case Precondition:
		return "Precondition"
	case Corrupt:
		return "Corrupt"
	case Resource:
		return "Resource"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}

// Error carries a Kind alongside a wrapped cause, using the plain
// wrapped-error style (fmt.Errorf("...: %w", err)) while still letting
// callers recover the kind via errors.As.
type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error with no wrapped cause.
func NewError(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// WrapError builds an Error wrapping an underlying cause.
func WrapError(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}
