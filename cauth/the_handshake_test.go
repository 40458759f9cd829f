package cauth

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
)

func TestHandshakeRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	psk := []byte("0123456789abcdef0123456789abcdef"[:32])
	lookup := func(username string) ([]byte, bool) {
		if username == "alice" {
			return psk, true
		}
		return nil, false
	}

	type clientResult struct {
		key     [32]byte
		initSeq uint32
		err     error
	}
	clientDone := make(chan clientResult, 1)
	go func() {
		k, seq, err := ClientHandshake(clientConn, "alice", psk)
		clientDone <- clientResult{k, seq, err}
	}()

	username, serverKey, serverSeq, serverErr := ServerHandshake(serverConn, lookup)
	require.NoError(t, serverErr)
	assert.Equal(t, "alice", username)
	assert.Equal(t, uint32(0), serverSeq)

	cr := <-clientDone
	require.NoError(t, cr.err)
	assert.Equal(t, uint32(0), cr.initSeq)
	assert.Equal(t, serverKey, cr.key)
}

func TestHandshakeUnknownUserFails(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	psk := []byte("0123456789abcdef0123456789abcdef"[:32])
	lookup := func(username string) ([]byte, bool) { return nil, false }

	clientDone := make(chan error, 1)
	go func() {
		_, _, err := ClientHandshake(clientConn, "ghost", psk)
		clientDone <- err
	}()

	_, _, _, serverErr := ServerHandshake(serverConn, lookup)
	require.Error(t, serverErr)
	assert.True(t, errors.Is(serverErr, cerr.ErrPolicy))

	<-clientDone // client observes the Error packet and fails too; just drain
}

func TestHandshakeMismatchedPSKFailsAuth(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverPSK := []byte("0123456789abcdef0123456789abcdef"[:32])
	clientPSK := []byte("ffffffffffffffffffffffffffffffff"[:32])
	lookup := func(username string) ([]byte, bool) { return serverPSK, true }

	clientDone := make(chan error, 1)
	go func() {
		_, _, err := ClientHandshake(clientConn, "alice", clientPSK)
		clientDone <- err
	}()

	_, _, _, serverErr := ServerHandshake(serverConn, lookup)
	require.Error(t, serverErr)
	assert.True(t, errors.Is(serverErr, cerr.ErrAuthFail))

	<-clientDone
}

func TestPSKStoreProvisionAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPSKStore(dir)
	require.NoError(t, err)

	psk, err := store.Provision("alice")
	require.NoError(t, err)
	require.Len(t, psk, PSKSize)

	got, ok := store.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, psk, got)
}

func TestPSKStoreRefusesDoubleProvision(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPSKStore(dir)
	require.NoError(t, err)

	_, err = store.Provision("alice")
	require.NoError(t, err)

	_, err = store.Provision("alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}

func TestPSKStoreLookupUnknownUser(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPSKStore(dir)
	require.NoError(t, err)

	_, ok := store.Lookup("nobody")
	assert.False(t, ok)
}

func TestLoadClientPSK(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPSKStore(dir)
	require.NoError(t, err)
	psk, err := store.Provision("bob")
	require.NoError(t, err)

	got, err := LoadClientPSK(store.path("bob"))
	require.NoError(t, err)
	assert.Equal(t, psk, got)
}
