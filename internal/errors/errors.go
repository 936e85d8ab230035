// Package errors provides error handling for stubgen.
//
// It re-exports github.com/cockroachdb/errors (stack traces, wrapping, user
// hints) and declares the sentinel errors every stage of a generation run
// reports through. All of them are fatal: a run that hits one writes nothing.
//
//	if err := idx.Resolve(req); errors.Is(err, errors.ErrMissingSymbol) {
//	    // ...
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Generation run failures.
var (
	// ErrMissingSymbol: a requested symbol has no declaration in the source tree.
	ErrMissingSymbol = crdb.New("missing symbol")

	// ErrAmbiguousSymbol: a bare name matches more than one kind of declaration.
	ErrAmbiguousSymbol = crdb.New("ambiguous symbol")

	// ErrUnreadableInput: the definition file or source tree cannot be read.
	ErrUnreadableInput = crdb.New("unreadable input")

	// ErrUnparsableSource: a source file does not parse as PHP.
	ErrUnparsableSource = crdb.New("unparsable source")

	// ErrWriteFailure: the stub file could not be written.
	ErrWriteFailure = crdb.New("write failure")

	// ErrStaleOutput: check mode found an output file that differs from a fresh render.
	ErrStaleOutput = crdb.New("stale output")
)
