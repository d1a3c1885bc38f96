// Package jiterrors is the error taxonomy for the jit execution core (§7).
// Kinds are built with gopkg.in/src-d/go-errors.v1, the same mechanism the
// teacher repo uses for its own ErrNotAuthorized-style error families: a
// *Kind is a reusable template, New()/Wrap() produce a concrete *Error that
// satisfies the stdlib error interface and compares with Kind.Is.
package jiterrors

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrPlan covers tuple-layout mismatches, unsupported expression-type
	// combinations, and result-type inference failures. Raised at plan
	// build; fatal to the query.
	ErrPlan = errors.NewKind("plan error: %s")

	// ErrOutOfRangeCast is a PlanError raised when a literal cannot be
	// represented in its declared type.
	ErrOutOfRangeCast = errors.NewKind("literal %v cannot be represented as %s")

	// ErrIO covers segment load failures. Raised at chunk start; aborts the
	// query and releases any held locks.
	ErrIO = errors.NewKind("io error: %s")

	// ErrStorage covers MVCC lock acquisition failure and other storage
	// layer faults surfaced at chunk start.
	ErrStorage = errors.NewKind("storage error: %s")
)

// IsPlanError reports whether err (or anything it wraps) is a PlanError,
// including the OutOfRangeCast specialization.
func IsPlanError(err error) bool {
	return ErrPlan.Is(err) || ErrOutOfRangeCast.Is(err)
}
