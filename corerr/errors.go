// Package corerr is the core's own error taxonomy (§7), distinct from the narrower error kinds
// the volume driver seam (§4.1) reports. Every phase, the mover and the gap engine classify
// failures into one of these kinds rather than matching error strings.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package corerr

import "github.com/pkg/errors"

// Kind is one of the error kinds the core distinguishes per §7.
type Kind int

const (
	// KindNone is the zero value; never attached to an actual error.
	KindNone Kind = iota
	KindNotAVolume
	KindHibernated
	KindReadOnly
	KindPrivilegeDenied
	KindCorruptMft
	KindPartialMove
	KindNoGap
	KindVolumeIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotAVolume:
		return "NotAVolume"
	case KindHibernated:
		return "Hibernated"
	case KindReadOnly:
		return "ReadOnly"
	case KindPrivilegeDenied:
		return "PrivilegeDenied"
	case KindCorruptMft:
		return "CorruptMft"
	case KindPartialMove:
		return "PartialMove"
	case KindNoGap:
		return "NoGap"
	case KindVolumeIO:
		return "VolumeIO"
	case KindCancelled:
		return "Cancelled"
	default:
		return "None"
	}
}

// coreError pairs a Kind with the underlying cause, so callers can both classify the failure
// (via Is/KindOf) and log the original system-error string (§7 "the log carries both the item
// identity and the underlying system error string").
type coreError struct {
	kind  Kind
	cause error
}

func (e *coreError) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.cause.Error()
}

func (e *coreError) Unwrap() error { return e.cause }

// New creates a core error of the given kind wrapping cause (which may be nil).
func New(kind Kind, cause error, msgAndArgs ...interface{}) error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	e := &coreError{kind: kind, cause: cause}
	if len(msgAndArgs) == 0 {
		return e
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return e
	}
	return errors.Wrapf(e, format, msgAndArgs[1:]...)
}

// KindOf extracts the Kind attached to err, or KindNone if err was not produced by New.
func KindOf(err error) Kind {
	var ce *coreError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return KindNone
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
