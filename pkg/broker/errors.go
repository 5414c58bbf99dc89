/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package broker

import (
	"errors"
)

var (
	// ErrInsufficientCredit is returned by an Allocator when the identity
	// cannot hold more vessels. It aborts the whole request.
	ErrInsufficientCredit = errors.New("insufficient vessel credit")
	// ErrInvalidCandidate is returned by an Allocator for a handle that is
	// stale or otherwise unusable. Only that candidate is discarded.
	ErrInvalidCandidate = errors.New("invalid candidate")

	ErrRequestInProgress = errors.New("request still in progress")
	ErrShuttingDown      = errors.New("broker is shutting down")
	ErrInvalidIdentity   = errors.New("identity must not be empty")

	errPassLimitExceeded = errors.New("pass counter exceeds configured maximum")
	errInterrupted       = errors.New("resolution interrupted by shutdown")
)

// ErrorKind classifies what went wrong with a group.
type ErrorKind string

const (
	KindNone               ErrorKind = "none"
	KindInvalidRules       ErrorKind = "invalid_rules"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindInsufficientCredit ErrorKind = "insufficient_credit"
	KindAllocator          ErrorKind = "allocator"
	KindInternal           ErrorKind = "internal"
)

// GroupError is the error recorded on a group.
type GroupError struct {
	Kind ErrorKind
	Err  error
}

func (e *GroupError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}

	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *GroupError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error aborts the whole request rather than just
// the group it happened in.
func (e *GroupError) Fatal() bool {
	switch e.Kind {
	case KindInsufficientCredit, KindAllocator, KindInternal:
		return true
	case KindNone, KindInvalidRules, KindInvalidRequest:
		return false
	}

	return false
}

func newGroupError(kind ErrorKind, err error) *GroupError {
	return &GroupError{Kind: kind, Err: err}
}
