package cwire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Type: UploadChunk, Seq: 42}
	copy(h.IV[:], bytes.Repeat([]byte{0xAB}, IvLen))

	require.NoError(t, SendHeader(&buf, h))
	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderAAD(t *testing.T) {
	h := Header{Type: DownloadReq, Seq: 0x01020304}
	aad := h.AAD()
	require.Len(t, aad, 5)
	assert.Equal(t, byte(DownloadReq), aad[0])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, aad[1:])
}

func TestFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello, cloudbox")
	require.NoError(t, SendField(&buf, body))
	got, err := ReadField(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestEmptyFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SendField(&buf, nil))
	got, err := ReadField(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFieldRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7F, 0xFF, 0xFF, 0xFF}) // declares ~2GB, exceeds MaxAllocField
	_, err := ReadField(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrOversizedField))
}

func TestTagRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tag := bytes.Repeat([]byte{0x42}, TagLen)
	require.NoError(t, SendTag(&buf, tag))
	got, err := ReadTag(&buf)
	require.NoError(t, err)
	assert.Equal(t, tag, got[:])
}

func TestSendTagRejectsWrongLength(t *testing.T) {
	var buf bytes.Buffer
	err := SendTag(&buf, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestReadFieldTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 10}) // declares 10 bytes, supplies none
	_, err := ReadField(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrTruncated))
}

func TestMessageTypeValidAndString(t *testing.T) {
	assert.True(t, UploadReq.Valid())
	assert.False(t, numMessageTypes.Valid())
	assert.Equal(t, "UploadChunk", UploadChunk.String())
	assert.Equal(t, "Unknown", numMessageTypes.String())
}
