package ctransfer

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cstore"
	"github.com/tredeske/cloudbox/csession"
)

// newSessionPair builds a connected client/server csession.Session pair
// sharing one key, wired over an in-memory net.Pipe, mirroring what
// cauth's handshake hands off to the real binaries.
func newSessionPair(t *testing.T) (client, server *csession.Session) {
	t.Helper()
	var key [csession.KeySize]byte
	for i := range key {
		key[i] = byte(i + 7)
	}
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })

	client, err := csession.New(c, key, 0)
	require.NoError(t, err)
	server, err = csession.New(s, key, 0)
	require.NoError(t, err)
	return
}

// runServerLoopAsync runs RunServerLoop in the background and returns a
// channel that receives its err result once the loop exits.
func runServerLoopAsync(sess *csession.Session, storage *cstore.Storage) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := RunServerLoop(sess, storage)
		done <- err
	}()
	return done
}

func TestListEmptyDirectory(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	files, status, err := ClientList(client)
	require.NoError(t, err)
	assert.Empty(t, status)
	assert.Empty(t, files)

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestListReportsStoredFiles(t *testing.T) {
	client, server := newSessionPair(t)
	root := t.TempDir()
	storage, err := cstore.Open(root, "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "b.txt", "b"))
	require.NoError(t, writeFile(storage, "a.txt", "a"))
	serverDone := runServerLoopAsync(server, storage)

	files, status, err := ClientList(client)
	require.NoError(t, err)
	assert.Empty(t, status)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func writeFile(storage *cstore.Storage, name, content string) error {
	f, err := storage.OpenWriteTemp(name)
	if err != nil {
		return err
	}
	if _, err = f.Write([]byte(content)); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return storage.CommitTempTo(name)
}

func TestUploadEmptyFile(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	status, err := ClientUpload(client, "empty.bin", bytes.NewReader(nil), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "uploaded 0 bytes", status)
	assert.True(t, storage.Exists("empty.bin"))

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestUploadExactlyOneChunkSizeFile(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	payload := bytes.Repeat([]byte{0x7A}, csession.ChunkSize)
	status, err := ClientUpload(client, "exact.bin", bytes.NewReader(payload), int64(len(payload)), nil)
	require.NoError(t, err)
	assert.Equal(t, "uploaded 4096 bytes", status)

	f, size, err := storage.OpenRead("exact.bin")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(csession.ChunkSize), size)

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestUploadMultiChunkFile(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	payload := bytes.Repeat([]byte{0x11}, csession.ChunkSize*2+37)
	status, err := ClientUpload(client, "multi.bin", bytes.NewReader(payload), int64(len(payload)), nil)
	require.NoError(t, err)
	assert.Equal(t, "uploaded 8229 bytes", status)

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestUploadInterruptedLeavesNoTempFile(t *testing.T) {
	client, server := newSessionPair(t)
	root := t.TempDir()
	storage, err := cstore.Open(root, "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	payload := bytes.Repeat([]byte{0x5C}, csession.ChunkSize*3)
	interruptAfterFirstChunk := func() func() bool {
		calls := 0
		return func() bool {
			calls++
			return calls > 1
		}
	}()
	_, err = ClientUpload(client, "cut.bin", bytes.NewReader(payload),
		int64(len(payload)), interruptAfterFirstChunk)
	require.Error(t, err)

	assert.False(t, storage.Exists("cut.bin"))
	names, lerr := storage.List()
	require.NoError(t, lerr)
	assert.Empty(t, names)

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestUploadRefusesExistingFile(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "dup.txt", "x"))
	serverDone := runServerLoopAsync(server, storage)

	status, err := ClientUpload(client, "dup.txt", bytes.NewReader([]byte("y")), 1, nil)
	require.NoError(t, err) // command-local failure: not a session error
	assert.Contains(t, status, "already exists")

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestDownloadRoundTrip(t *testing.T) {
	client, server := newSessionPair(t)
	root := t.TempDir()
	storage, err := cstore.Open(root, "alice")
	require.NoError(t, err)
	content := strings.Repeat("z", csession.ChunkSize+10)
	require.NoError(t, writeFile(storage, "big.bin", content))
	serverDone := runServerLoopAsync(server, storage)

	var out bytes.Buffer
	status, complete, err := ClientDownload(client, "big.bin", &out)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Contains(t, status, "sending")
	assert.Equal(t, content, out.String())

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestDownloadMissingFileReportsErrorWithoutChunks(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	var out bytes.Buffer
	status, complete, err := ClientDownload(client, "nope.bin", &out)
	require.NoError(t, err)
	assert.False(t, complete)
	assert.NotEmpty(t, status)
	assert.Empty(t, out.Bytes())

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestRenameCollisionFails(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "a.txt", "a"))
	require.NoError(t, writeFile(storage, "b.txt", "b"))
	serverDone := runServerLoopAsync(server, storage)

	status, err := ClientRename(client, "a.txt", "b.txt")
	require.NoError(t, err)
	assert.Contains(t, status, "already exists")
	assert.True(t, storage.Exists("a.txt"))

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestRenameSucceeds(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "a.txt", "a"))
	serverDone := runServerLoopAsync(server, storage)

	status, err := ClientRename(client, "a.txt", "c.txt")
	require.NoError(t, err)
	assert.Equal(t, "renamed", status)
	assert.True(t, storage.Exists("c.txt"))
	assert.False(t, storage.Exists("a.txt"))

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestDeleteCancelled(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "a.txt", "a"))
	serverDone := runServerLoopAsync(server, storage)

	prompt, status, done, err := ClientDeleteRequest(client, "a.txt")
	require.NoError(t, err)
	require.False(t, done)
	assert.Empty(t, status)
	assert.Contains(t, prompt, "a.txt")

	status, err = ClientDeleteConfirm(client, "n")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", status)
	assert.True(t, storage.Exists("a.txt"))

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestDeleteConfirmed(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	require.NoError(t, writeFile(storage, "a.txt", "a"))
	serverDone := runServerLoopAsync(server, storage)

	_, _, done, err := ClientDeleteRequest(client, "a.txt")
	require.NoError(t, err)
	require.False(t, done)

	status, err := ClientDeleteConfirm(client, "y")
	require.NoError(t, err)
	assert.Equal(t, "deleted", status)
	assert.False(t, storage.Exists("a.txt"))

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestDeleteRequestMissingFileSkipsConfirmRound(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)
	serverDone := runServerLoopAsync(server, storage)

	prompt, status, done, err := ClientDeleteRequest(client, "ghost.txt")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, prompt)
	assert.Contains(t, status, "does not exist")

	require.NoError(t, ClientLogout(client))
	require.NoError(t, <-serverDone)
}

func TestLogoutEndsServerLoopCleanly(t *testing.T) {
	client, server := newSessionPair(t)
	storage, err := cstore.Open(t.TempDir(), "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var loggedOut bool
	var loopErr error
	go func() {
		defer wg.Done()
		loggedOut, loopErr = RunServerLoop(server, storage)
	}()

	require.NoError(t, ClientLogout(client))
	wg.Wait()
	require.NoError(t, loopErr)
	assert.True(t, loggedOut)
}
