// Package cerr defines the typed error taxonomy shared by every layer of
// the session protocol: the wire codec, the AEAD session layer, the
// command dispatcher, and the storage adapter.
//
// Every error built with Wrap chains back, via uerr, to exactly one of
// the sentinels below, so callers can classify a failure with
// errors.Is and the session loop can decide whether it is fatal with
// IsFatal.
package cerr

import (
	"errors"

	"github.com/tredeske/cloudbox/uerr"
)

// Sentinel errors, one per taxonomy member in spec.md §7.
const (
	ErrIo             = uerr.Const("i/o failure")
	ErrTruncated      = uerr.Const("stream closed mid-packet")
	ErrOversizedField = uerr.Const("declared field length exceeds policy")
	ErrAuthFail       = uerr.Const("AEAD tag verification failed")
	ErrSeqMismatch    = uerr.Const("observed sequence number does not match local sequence")
	ErrUnexpectedType = uerr.Const("observed message type not in expected set")
	ErrProtocol       = uerr.Const("structurally valid but semantically illegal message sequence")
	ErrStorage        = uerr.Const("local filesystem operation failed")
	ErrPolicy         = uerr.Const("policy violation")
	ErrTimeout        = uerr.Const("deadline exceeded")
)

// Wrap chains cause under sentinel with a formatted message, the same
// idiom the teacher uses throughout (uerr.Chainf), but also makes the
// result satisfy errors.Is(result, sentinel).
func Wrap(sentinel error, cause error, format string, args ...any) error {
	return &sentinelErr{
		UError:   *uerr.Chainf(cause, format, args...),
		sentinel: sentinel,
	}
}

type sentinelErr struct {
	uerr.UError
	sentinel error
}

func (this *sentinelErr) Unwrap() error { return this.sentinel }

// Cause reports the original error chained in, if any; distinct from
// Unwrap, which reports the taxonomy sentinel so errors.Is matches it.
func Cause(err error) error {
	var se *sentinelErr
	if errors.As(err, &se) {
		return se.Cause
	}
	return nil
}

// IsFatal reports whether err, per spec.md §7, must tear down the whole
// session (zeroize keys, close the socket, surface to the user) rather
// than be reported to the peer as a command-local Error packet.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrAuthFail),
		errors.Is(err, ErrSeqMismatch),
		errors.Is(err, ErrTruncated),
		errors.Is(err, ErrOversizedField),
		errors.Is(err, ErrUnexpectedType),
		errors.Is(err, ErrTimeout):
		return true
	case errors.Is(err, ErrIo):
		// Every Io is treated as fatal here, wherever it originated; a
		// failure raised as StorageError instead is never fatal.
		return true
	default:
		return false
	}
}

// CommandLocal reports whether err should be sealed into an Error packet
// and surfaced to the peer while the session continues, per spec.md §7.
func CommandLocal(err error) bool {
	return !IsFatal(err) && err != nil
}
