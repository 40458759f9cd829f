package ctransfer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/csession"
)

func TestEncodeDecodeFilenameRoundTrip(t *testing.T) {
	encoded, err := EncodeFilename("report.pdf")
	require.NoError(t, err)
	require.Len(t, encoded, csession.FnameMaxLen)

	decoded, err := DecodeFilename(encoded)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", decoded)
}

func TestEncodeFilenameRejectsOverLong(t *testing.T) {
	name := strings.Repeat("x", csession.FnameMaxLen)
	_, err := EncodeFilename(name)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}

func TestEncodeFilenameBoundaryLength(t *testing.T) {
	name := strings.Repeat("x", csession.FnameMaxLen-1)
	encoded, err := EncodeFilename(name)
	require.NoError(t, err)
	decoded, err := DecodeFilename(encoded)
	require.NoError(t, err)
	assert.Equal(t, name, decoded)
}

func TestDecodeFilenameTolerantOfNoPadding(t *testing.T) {
	decoded, err := DecodeFilename([]byte("short.txt"))
	require.NoError(t, err)
	assert.Equal(t, "short.txt", decoded)
}

func TestDecodeFilenameRejectsEmpty(t *testing.T) {
	_, err := DecodeFilename(make([]byte, csession.FnameMaxLen))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrPolicy))
}
