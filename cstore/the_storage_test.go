package cstore

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
)

func TestValidateFilenameAccepts(t *testing.T) {
	got, err := ValidateFilename("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got)
}

func TestValidateFilenameTrimsTrailingNewline(t *testing.T) {
	got, err := ValidateFilename("report.pdf\n")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got)
}

func TestValidateFilenameRejectsEmpty(t *testing.T) {
	_, err := ValidateFilename("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}

func TestValidateFilenameRejectsDotAndDotDot(t *testing.T) {
	for _, name := range []string{".", ".."} {
		_, err := ValidateFilename(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, cerr.ErrPolicy))
	}
}

func TestValidateFilenameRejectsSeparators(t *testing.T) {
	for _, name := range []string{"a/b", "a\\b", "../../etc/passwd"} {
		_, err := ValidateFilename(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, cerr.ErrPolicy))
	}
}

func TestValidateFilenameBoundaryLength(t *testing.T) {
	maxName := strings.Repeat("a", csession.FnameMaxLen-1)
	_, err := ValidateFilename(maxName)
	require.NoError(t, err)

	tooLong := strings.Repeat("a", csession.FnameMaxLen)
	_, err = ValidateFilename(tooLong)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}

func TestUploadCommitRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	f, err := s.OpenWriteTemp("doc.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.CommitTempTo("doc.txt"))
	assert.True(t, s.Exists("doc.txt"))

	body, err := os.ReadFile(filepath.Join(root, "alice", "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.txt"}, names)
}

func TestUploadAbort(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	f, err := s.OpenWriteTemp("doc.txt")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.AbortTemp("doc.txt"))
	assert.False(t, s.Exists("doc.txt"))

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListExcludesHousekeepingAndTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	f, err := s.OpenWriteTemp("inflight.bin")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "kept.bin"), []byte("x"), 0600))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.bin"}, names)
}

func TestRenameRefusesCollision(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "a.txt"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "b.txt"), []byte("b"), 0600))

	err = s.Rename("a.txt", "b.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}

func TestRenameSucceedsWithoutCollision(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "a.txt"), []byte("a"), 0600))
	require.NoError(t, s.Rename("a.txt", "c.txt"))
	assert.True(t, s.Exists("c.txt"))
	assert.False(t, s.Exists("a.txt"))
}

func TestDeleteRemovesFile(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "a.txt"), []byte("a"), 0600))
	require.NoError(t, s.Delete("a.txt"))
	assert.False(t, s.Exists("a.txt"))
}

func TestSweepTempRemovesUnrecordedTempFile(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "alice")
	require.NoError(t, os.MkdirAll(userDir, 0700))

	// A temp file with no housekeeping record at all (as if the server
	// crashed between creating the file and writing the record) is swept
	// immediately, regardless of age.
	orphan := filepath.Join(userDir, "."+strconv.FormatUint(1, 16)+TempSuffix)
	require.NoError(t, os.WriteFile(orphan, []byte("partial"), 0600))

	n, err := SweepTemp(root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, statErr := os.Stat(orphan)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSweepTempLeavesFreshRecordedUpload(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, "alice")
	require.NoError(t, err)

	f, err := s.OpenWriteTemp("big.bin")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	n, err := SweepTemp(root)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a freshly recorded in-flight upload must not be swept")
}

func TestSweepTempRemovesStaleRecordedUpload(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "alice")
	require.NoError(t, os.MkdirAll(userDir, 0700))

	tmpName := "." + strconv.FormatUint(usyncHash(t, "alice", "big.bin"), 16) + TempSuffix
	require.NoError(t, os.WriteFile(filepath.Join(userDir, tmpName), []byte("x"), 0600))

	hk := housekeeping{TempStarted: map[string]int64{
		tmpName: time.Now().Add(-2 * orphanAge).Unix(),
	}}
	require.NoError(t, storeHousekeeping(userDir, hk))

	n, err := SweepTemp(root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func usyncHash(t *testing.T, username, name string) uint64 {
	t.Helper()
	s := &Storage{username: username}
	tmp := s.tempName(name)
	// tmp is "." + hex + TempSuffix; strip both to recover the raw hash text.
	hex := strings.TrimSuffix(strings.TrimPrefix(tmp, "."), TempSuffix)
	v, err := strconv.ParseUint(hex, 16, 64)
	require.NoError(t, err)
	return v
}
