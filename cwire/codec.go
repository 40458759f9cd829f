// Package cwire implements the wire codec described in spec.md §4.1: the
// length-prefixed field, header, and tag framing shared by every packet
// that crosses the connection. It knows nothing about encryption or
// sequence numbers; csession builds the AEAD session layer on top of it.
package cwire

import (
	"encoding/binary"
	"io"

	"github.com/tredeske/cloudbox/cerr"
)

// Wire constants, normative per spec.md §3.
const (
	IvLen  = 12
	TagLen = 16

	// FlenMax bounds the declared length of any body field. 2^32-1 would
	// allow a hostile peer to claim an unbounded allocation; this module
	// additionally caps it with MaxAllocField so a corrupt or malicious
	// length never drives a multi-gigabyte allocation from a 4-byte claim.
	FlenMax = 1<<32 - 1

	// MaxAllocField is the largest field this implementation will
	// actually allocate for. Chunks are bounded by CHUNK_SIZE plus AEAD
	// overhead, so anything larger than a few chunk-widths is already
	// malformed; refuse it before reading rather than after.
	MaxAllocField = 1 << 20
)

// MessageType is the 1-byte, stable, injective wire tag for every packet
// (spec.md §3).
type MessageType uint8

const (
	AuthStart MessageType = iota
	AuthAck
	AuthEnd
	ListReq
	ListAns
	UploadReq
	UploadAns
	UploadChunk
	UploadEnd
	UploadRes
	DownloadReq
	DownloadAns
	DownloadChunk
	DownloadEnd
	RenameReq
	RenameAns
	DeleteReq
	DeleteAns
	DeleteConfirm
	DeleteRes
	LogoutReq
	LogoutAns
	Error

	numMessageTypes
)

func (t MessageType) Valid() bool { return t < numMessageTypes }

var messageTypeNames = [...]string{
	"AuthStart", "AuthAck", "AuthEnd",
	"ListReq", "ListAns",
	"UploadReq", "UploadAns", "UploadChunk", "UploadEnd", "UploadRes",
	"DownloadReq", "DownloadAns", "DownloadChunk", "DownloadEnd",
	"RenameReq", "RenameAns",
	"DeleteReq", "DeleteAns", "DeleteConfirm", "DeleteRes",
	"LogoutReq", "LogoutAns",
	"Error",
}

func (t MessageType) String() string {
	if int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return "Unknown"
}

// Header is the plaintext prefix of every packet: type, sender sequence
// number, and the per-packet nonce. AAD = Type || Seq (5 bytes), computed
// by the caller via (Header).AAD.
type Header struct {
	Type MessageType
	Seq  uint32
	IV   [IvLen]byte
}

// AAD returns the 5-byte additional authenticated data bound into this
// packet's AEAD tag: type || seq, big-endian.
func (h Header) AAD() []byte {
	var b [5]byte
	b[0] = byte(h.Type)
	binary.BigEndian.PutUint32(b[1:], h.Seq)
	return b[:]
}

// readFull reads exactly len(buf) bytes, retrying on short reads, the
// contract spec.md §4.1 requires of every primitive below. A close
// mid-packet is reported as cerr.ErrTruncated, never io.EOF/io.ErrUnexpectedEOF
// directly, so callers up the stack can classify it uniformly.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return cerr.Wrap(cerr.ErrTruncated, err, "stream closed reading %d bytes", len(buf))
	}
	return cerr.Wrap(cerr.ErrIo, err, "reading %d bytes", len(buf))
}

// SendHeader writes type || seq || iv.
func SendHeader(w io.Writer, h Header) error {
	var buf [1 + 4 + IvLen]byte
	buf[0] = byte(h.Type)
	binary.BigEndian.PutUint32(buf[1:5], h.Seq)
	copy(buf[5:], h.IV[:])
	if _, err := w.Write(buf[:]); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "writing packet header")
	}
	return nil
}

// ReadHeader reads type || seq || iv. It does not validate Type against
// any expected set; that is csession's job, since the meaning of
// "expected" depends on protocol state.
func ReadHeader(r io.Reader) (h Header, err error) {
	var buf [1 + 4 + IvLen]byte
	if err = readFull(r, buf[:]); err != nil {
		return
	}
	h.Type = MessageType(buf[0])
	h.Seq = binary.BigEndian.Uint32(buf[1:5])
	copy(h.IV[:], buf[5:])
	return
}

// SendField writes a 4-byte big-endian length followed by b.
func SendField(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "writing field length")
	}
	if len(b) == 0 {
		return nil
	}
	if _, err := w.Write(b); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "writing field body (%d bytes)", len(b))
	}
	return nil
}

// ReadField reads a 4-byte big-endian length, refuses any length
// exceeding FlenMax or MaxAllocField, then reads exactly that many bytes.
func ReadField(r io.Reader) (b []byte, err error) {
	var lenBuf [4]byte
	if err = readFull(r, lenBuf[:]); err != nil {
		return
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > FlenMax || n > MaxAllocField {
		err = cerr.Wrap(cerr.ErrOversizedField, nil,
			"declared field length %d exceeds limit %d", n, MaxAllocField)
		return
	}
	if n == 0 {
		return []byte{}, nil
	}
	b = make([]byte, n)
	err = readFull(r, b)
	return
}

// SendTag writes the fixed-width AEAD tag.
func SendTag(w io.Writer, tag []byte) error {
	if len(tag) != TagLen {
		return cerr.Wrap(cerr.ErrIo, nil, "tag must be %d bytes, got %d", TagLen, len(tag))
	}
	if _, err := w.Write(tag); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "writing tag")
	}
	return nil
}

// ReadTag reads the fixed-width AEAD tag.
func ReadTag(r io.Reader) (tag [TagLen]byte, err error) {
	err = readFull(r, tag[:])
	return
}
