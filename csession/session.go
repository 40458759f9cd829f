// Package csession is the AEAD session layer of spec.md §4.2: the only
// API the command state machines (package ctransfer) use to talk to the
// peer. It owns the shared symmetric key, the monotonic sequence-number
// lockstep, and the seal/open primitives built on top of the wire codec
// in cwire.
package csession

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"slices"
	"time"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/cwire"
	"github.com/tredeske/cloudbox/czero"
	"github.com/tredeske/cloudbox/uthrottle"
)

// Constants normative per spec.md §3.
const (
	FnameMaxLen = 256
	FsizeMax    = 1<<32 - 1
	ChunkSize   = 4096

	// SeqMax is the largest representable sequence number. Per spec.md
	// §3, wrap-around is forbidden: once Seq() reaches SeqMax-1 the
	// caller (ctransfer) must initiate Logout before the next Seal.
	SeqMax = ^uint32(0)
)

// NearSeqWrap reports whether seq has reached the point where spec.md §3
// requires the client to log out before sending again.
func NearSeqWrap(seq uint32) bool { return seq >= SeqMax-1 }

// KeySize is the AEAD key width: AES-256-GCM.
const KeySize = 32

// Session is the per-connection authenticated-encryption state described
// in spec.md §3. Both peers construct one right after the bootstrap
// handshake (package cauth) hands them (K, initSeq[, username]).
//
// A Session is not safe for concurrent Seal/Open calls: spec.md §5
// requires strictly sequential request/response alternation, so none is
// provided.
type Session struct {
	conn io.ReadWriter
	gcm  cipher.AEAD
	key  [KeySize]byte
	seq  uint32

	// Username is set server-side once the handshake resolves an
	// identity; it is empty on the client.
	Username string

	throttle *uthrottle.SThrottle // nil unless SetRateLimit was called
}

// SetRateLimit caps the session to rateBytesPerSec bytes of plaintext
// per second on Seal, spreading bursty chunk writes (spec.md §4.4's
// CHUNK_SIZE transfers) out over time rather than saturating the link.
// A Session is single-goroutine per spec.md §5, so uthrottle's
// lock-free single-writer variant applies directly.
func (s *Session) SetRateLimit(rateBytesPerSec int64) {
	s.throttle = &uthrottle.SThrottle{}
	s.throttle.Start(rateBytesPerSec, 100*time.Millisecond)
}

// New constructs a Session over conn using key K and the handshake's
// initial sequence number. The key is copied; the caller's copy should
// be zeroized by czero.Array32 once passed in.
func New(conn io.ReadWriter, key [KeySize]byte, initSeq uint32) (*Session, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, cerr.Wrap(cerr.ErrIo, err, "constructing AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.Wrap(cerr.ErrIo, err, "constructing GCM")
	}
	s := &Session{
		conn: conn,
		gcm:  gcm,
		seq:  initSeq,
	}
	s.key = key
	return s, nil
}

// Seq returns the session's current, pre-next-operation sequence number.
func (s *Session) Seq() uint32 { return s.seq }

// NearWrap reports whether Seq() has already reached SeqMax-1 (or
// beyond); see spec.md §3's wrap-around guard.
func (s *Session) NearWrap() bool { return NearSeqWrap(s.seq) }

// Seal generates a fresh IV, encrypts plaintext under K with AAD =
// type||seq, writes header+body+tag to the connection, and advances seq
// by one on success. Per spec.md §4.2 this must not be interleaved with
// another Seal/Open on the same session.
func (s *Session) Seal(typ cwire.MessageType, plaintext []byte) error {
	if s.throttle != nil && len(plaintext) > 0 {
		s.throttle.Await(int64(len(plaintext)))
	}

	var iv [cwire.IvLen]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "generating IV")
	}

	hdr := cwire.Header{Type: typ, Seq: s.seq, IV: iv}
	sealed := s.gcm.Seal(nil, iv[:], plaintext, hdr.AAD())
	body, tag := sealed[:len(sealed)-cwire.TagLen], sealed[len(sealed)-cwire.TagLen:]

	if err := cwire.SendHeader(s.conn, hdr); err != nil {
		return err
	}
	if err := cwire.SendField(s.conn, body); err != nil {
		return err
	}
	if err := cwire.SendTag(s.conn, tag); err != nil {
		return err
	}
	s.seq++
	return nil
}

// Open reads one packet, verifies its seq and type, decrypts it, and
// advances seq by one on success.
//
// Rejects unless the packet's seq equals the local seq (ErrSeqMismatch,
// fatal) and the observed type is in expectedTypes or is cwire.Error
// (always allowed through so the caller can surface a command-local
// failure); otherwise ErrUnexpectedType (fatal). A failed tag
// verification is ErrAuthFail (fatal). All three are terminal for the
// session per spec.md §7; the caller is expected to tear down.
func (s *Session) Open(expectedTypes ...cwire.MessageType) (typ cwire.MessageType, plaintext []byte, err error) {
	hdr, err := cwire.ReadHeader(s.conn)
	if err != nil {
		return
	}
	typ = hdr.Type

	if hdr.Seq != s.seq {
		err = cerr.Wrap(cerr.ErrSeqMismatch, nil,
			"observed seq %d, expected %d", hdr.Seq, s.seq)
		return
	}
	if typ != cwire.Error && !slices.Contains(expectedTypes, typ) {
		err = cerr.Wrap(cerr.ErrUnexpectedType, nil,
			"observed type %s not in expected set %v", typ, expectedTypes)
		return
	}

	body, err := cwire.ReadField(s.conn)
	if err != nil {
		return
	}
	tag, err := cwire.ReadTag(s.conn)
	if err != nil {
		return
	}

	sealed := make([]byte, 0, len(body)+cwire.TagLen)
	sealed = append(sealed, body...)
	sealed = append(sealed, tag[:]...)

	plaintext, derr := s.gcm.Open(nil, hdr.IV[:], sealed, hdr.AAD())
	if derr != nil {
		err = cerr.Wrap(cerr.ErrAuthFail, derr, "tag verification failed for %s", typ)
		return
	}
	s.seq++
	return
}

// Close zeroizes the session key. It does not close the underlying
// connection; the caller that opened it (cmd/cloud-server's serve,
// cmd/cloud-client's main) owns that.
func (s *Session) Close() {
	czero.Array32(&s.key)
}
