package ctransfer

import (
	"bytes"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
)

// EncodeFilename implements the design note in spec.md §9: "the filename
// field is always exactly FNAME_MAX_LEN bytes, zero-padded after a
// trailing NUL." The source this was distilled from read the name
// (including a trailing newline) from a fixed stdin buffer, stripped the
// newline, then null-terminated and zero-padded it before encrypting;
// this keeps that exact on-wire shape for interop with any peer built
// the same way.
func EncodeFilename(name string) ([]byte, error) {
	if len(name) > csession.FnameMaxLen-1 {
		return nil, cerr.Wrap(cerr.ErrPolicy, nil,
			"filename %d bytes exceeds limit %d", len(name), csession.FnameMaxLen-1)
	}
	buf := make([]byte, csession.FnameMaxLen)
	copy(buf, name)
	// buf[len(name)] is already 0 (NUL terminator); the rest is zero pad.
	return buf, nil
}

// DecodeFilename reverses EncodeFilename, tolerating a plaintext shorter
// than FnameMaxLen (some peers omit the trailing padding).
func DecodeFilename(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	name, err := sanitize(string(b))
	return name, err
}

func sanitize(name string) (string, error) {
	if len(name) == 0 {
		return "", cerr.Wrap(cerr.ErrPolicy, nil, "empty filename")
	}
	return name, nil
}
