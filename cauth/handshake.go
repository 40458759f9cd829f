// Package cauth implements the one concrete bootstrap handshake this
// repository ships. spec.md §1 treats mutual authentication as an
// external collaborator, "specified only by interface": its output is a
// shared symmetric key and an initial sequence number, assumed as input
// to the session core (package csession). To make the two binaries in
// cmd/ actually interoperate, this package fills that interface with an
// X25519 ephemeral key exchange bound to a per-user pre-shared secret,
// using the three wire message types spec.md §3 reserves for it
// (AuthStart, AuthAck, AuthEnd).
//
// This is deliberately outside the "core" share of the implementation
// budget (spec.md §2): it is a separate package precisely so a different
// handshake can be substituted without touching csession, ctransfer, or
// cstore.
package cauth

import (
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
	"github.com/tredeske/cloudbox/cwire"
	"github.com/tredeske/cloudbox/czero"
)

const confirmInfo = "cloudbox-client-confirm"
const keyInfoPrefix = "cloudbox-session-key:"

// sendPlain and readPlain frame the handshake's own messages. The
// session key does not exist yet, so these do not go through
// csession.Seal/Open; they reuse cwire's length-prefixed field framing
// with a bare one-byte type tag in place of the full header (no seq, no
// IV, no AEAD tag - there is nothing to authenticate with yet, which is
// exactly why the handshake is out of core scope).
func sendPlain(w io.Writer, typ cwire.MessageType, fields ...[]byte) error {
	var tb [1]byte
	tb[0] = byte(typ)
	if _, err := w.Write(tb[:]); err != nil {
		return cerr.Wrap(cerr.ErrIo, err, "writing handshake message tag")
	}
	for _, f := range fields {
		if err := cwire.SendField(w, f); err != nil {
			return err
		}
	}
	return nil
}

func readPlain(r io.Reader, want cwire.MessageType, nFields int) (fields [][]byte, err error) {
	var tb [1]byte
	if _, rerr := io.ReadFull(r, tb[:]); rerr != nil {
		err = cerr.Wrap(cerr.ErrTruncated, rerr, "reading handshake message tag")
		return
	}
	got := cwire.MessageType(tb[0])
	if got == cwire.Error {
		err = cerr.Wrap(cerr.ErrProtocol, nil, "peer rejected handshake")
		return
	}
	if got != want {
		err = cerr.Wrap(cerr.ErrUnexpectedType, nil,
			"handshake: expected %s, got %s", want, got)
		return
	}
	for i := 0; i < nFields; i++ {
		f, ferr := cwire.ReadField(r)
		if ferr != nil {
			err = ferr
			return
		}
		fields = append(fields, f)
	}
	return
}

func deriveKey(shared, transcript, psk []byte) (key [csession.KeySize]byte, err error) {
	h := hkdf.New(sha256.New, shared, transcript, append([]byte(keyInfoPrefix), psk...))
	if _, err = io.ReadFull(h, key[:]); err != nil {
		err = cerr.Wrap(cerr.ErrIo, err, "deriving session key")
	}
	return
}

func confirmTag(key [csession.KeySize]byte) []byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(confirmInfo))
	return mac.Sum(nil)
}

// ClientHandshake runs the three-message exchange as the client and
// returns the session key and initial sequence number (always 0).
func ClientHandshake(conn io.ReadWriter, username string, psk []byte,
) (key [csession.KeySize]byte, initSeq uint32, err error) {

	curve := ecdh.X25519()
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		err = cerr.Wrap(cerr.ErrIo, err, "generating ephemeral key")
		return
	}
	clientPub := priv.PublicKey().Bytes()

	if err = sendPlain(conn, cwire.AuthStart, []byte(username), clientPub); err != nil {
		return
	}

	fields, err := readPlain(conn, cwire.AuthAck, 1)
	if err != nil {
		return
	}
	serverPubBytes := fields[0]

	serverPub, err := curve.NewPublicKey(serverPubBytes)
	if err != nil {
		err = cerr.Wrap(cerr.ErrProtocol, err, "invalid server public key")
		return
	}
	shared, err := priv.ECDH(serverPub)
	if err != nil {
		err = cerr.Wrap(cerr.ErrProtocol, err, "ECDH failed")
		return
	}
	defer czero.Bytes(shared)

	transcript := append(append(append([]byte{}, clientPub...), serverPubBytes...), username...)
	key, err = deriveKey(shared, transcript, psk)
	if err != nil {
		return
	}

	if err = sendPlain(conn, cwire.AuthEnd, confirmTag(key)); err != nil {
		return
	}
	initSeq = 0
	return
}

// ServerHandshake runs the three-message exchange as the server.
// lookupPSK resolves the pre-shared secret for a claimed username; it
// should return ok=false for an unknown user. On success it returns the
// resolved username, session key, and initial sequence number.
func ServerHandshake(conn io.ReadWriter, lookupPSK func(username string) (psk []byte, ok bool),
) (username string, key [csession.KeySize]byte, initSeq uint32, err error) {

	fields, err := readPlain(conn, cwire.AuthStart, 2)
	if err != nil {
		return
	}
	username = string(fields[0])
	clientPubBytes := fields[1]

	psk, ok := lookupPSK(username)
	if !ok {
		sendPlain(conn, cwire.Error, []byte("unknown user"))
		err = cerr.Wrap(cerr.ErrPolicy, nil, "unknown user %q", username)
		return
	}

	curve := ecdh.X25519()
	clientPub, err := curve.NewPublicKey(clientPubBytes)
	if err != nil {
		sendPlain(conn, cwire.Error, []byte("bad key"))
		err = cerr.Wrap(cerr.ErrProtocol, err, "invalid client public key")
		return
	}

	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		err = cerr.Wrap(cerr.ErrIo, err, "generating ephemeral key")
		return
	}
	serverPub := priv.PublicKey().Bytes()

	shared, err := priv.ECDH(clientPub)
	if err != nil {
		err = cerr.Wrap(cerr.ErrProtocol, err, "ECDH failed")
		return
	}
	defer czero.Bytes(shared)

	if err = sendPlain(conn, cwire.AuthAck, serverPub); err != nil {
		return
	}

	transcript := append(append(append([]byte{}, clientPubBytes...), serverPub...), username...)
	key, err = deriveKey(shared, transcript, psk)
	if err != nil {
		return
	}

	fields, err = readPlain(conn, cwire.AuthEnd, 1)
	if err != nil {
		return
	}
	if 1 != subtle.ConstantTimeCompare(fields[0], confirmTag(key)) {
		err = cerr.Wrap(cerr.ErrAuthFail, nil, "client confirmation mismatch for %q", username)
		czero.Array32(&key)
		return
	}
	initSeq = 0
	return
}
