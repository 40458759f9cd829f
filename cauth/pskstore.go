package cauth

import (
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/tredeske/cloudbox/uerr"
	"github.com/tredeske/cloudbox/uio"

	"github.com/tredeske/cloudbox/cerr"
)

// PSKSize is the width of a provisioned pre-shared secret.
const PSKSize = 32

// PSKStore resolves per-user pre-shared secrets from a directory of
// files, one per user, kept alongside (but not inside) the per-user
// storage directories cstore.Storage manages: account material is not a
// "stored file object" in spec.md's sense, so it lives in its own
// sibling directory rather than polluting a user's flat namespace or
// requiring a metadata database.
type PSKStore struct {
	dir string
}

// NewPSKStore opens (creating if needed) the account directory dir.
func NewPSKStore(dir string) (*PSKStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, cerr.Wrap(cerr.ErrStorage, err, "creating account dir %q", dir)
	}
	return &PSKStore{dir: dir}, nil
}

func (s *PSKStore) path(username string) string {
	return filepath.Join(s.dir, username+".psk")
}

// Lookup implements the lookupPSK callback ServerHandshake expects.
func (s *PSKStore) Lookup(username string) (psk []byte, ok bool) {
	b, err := os.ReadFile(s.path(username))
	if err != nil || len(b) != PSKSize {
		return nil, false
	}
	return b, true
}

// Provision creates a new random pre-shared secret for username,
// refusing to clobber an existing one, and returns it so it can be
// copied to the client out of band.
func (s *PSKStore) Provision(username string) (psk []byte, err error) {
	if _, exists := s.Lookup(username); exists {
		return nil, cerr.Wrap(cerr.ErrPolicy, nil, "user %q already provisioned", username)
	}
	psk = make([]byte, PSKSize)
	if _, err = rand.Read(psk); err != nil {
		return nil, cerr.Wrap(cerr.ErrIo, err, "generating PSK")
	}
	if ferr := uio.FileCreate(s.path(username), func(f *os.File) error {
		_, werr := f.Write(psk)
		return werr
	}); ferr != nil {
		return nil, cerr.Wrap(cerr.ErrStorage, ferr, "storing PSK for %q", username)
	}
	return psk, nil
}

// LoadClientPSK reads a pre-shared secret from a file path, for use by
// cmd/cloud-client when connecting as username.
func LoadClientPSK(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, uerr.Chainf(err, "reading PSK file %q", path)
	}
	if len(b) != PSKSize {
		return nil, uerr.Chainf(nil, "PSK file %q has wrong size %d, want %d", path, len(b), PSKSize)
	}
	return b, nil
}
