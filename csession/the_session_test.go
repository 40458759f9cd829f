package csession

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tredeske/cloudbox/cerr"
	"github.com/tredeske/cloudbox/cwire"
)

func testKey() (k [KeySize]byte) {
	for i := range k {
		k[i] = byte(i + 1)
	}
	return
}

func TestSealOpenRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()

	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	receiver, err := New(&buf, key, 0)
	require.NoError(t, err)

	plaintext := []byte("a file chunk payload")
	require.NoError(t, sender.Seal(cwire.UploadChunk, plaintext))

	typ, got, err := receiver.Open(cwire.UploadChunk)
	require.NoError(t, err)
	assert.Equal(t, cwire.UploadChunk, typ)
	assert.Equal(t, plaintext, got)
	assert.Equal(t, uint32(1), receiver.Seq())
	assert.Equal(t, uint32(1), sender.Seq())
}

func TestOpenAllowsErrorTypeThroughUnconditionally(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()

	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	receiver, err := New(&buf, key, 0)
	require.NoError(t, err)

	require.NoError(t, sender.Seal(cwire.Error, []byte("storage full")))

	typ, got, err := receiver.Open(cwire.UploadRes) // not expecting Error, but it must pass
	require.NoError(t, err)
	assert.Equal(t, cwire.Error, typ)
	assert.Equal(t, "storage full", string(got))
}

func TestOpenRejectsUnexpectedType(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()

	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	receiver, err := New(&buf, key, 0)
	require.NoError(t, err)

	require.NoError(t, sender.Seal(cwire.ListReq, []byte("/")))

	_, _, err = receiver.Open(cwire.UploadReq)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrUnexpectedType))
}

func TestTamperedBodyFailsAuth(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()

	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	receiver, err := New(&buf, key, 0)
	require.NoError(t, err)

	require.NoError(t, sender.Seal(cwire.UploadChunk, bytes.Repeat([]byte{0x55}, 32)))

	raw := buf.Bytes()
	// header is 1+4+12=17 bytes, then 4-byte field length, then body.
	bodyStart := 17 + 4
	raw[bodyStart] ^= 0xFF // flip a body bit

	_, _, err = receiver.Open(cwire.UploadChunk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrAuthFail))
}

func TestReplaySameSeqIsRejectedAfterAdvance(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()

	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	receiver, err := New(&buf, key, 0)
	require.NoError(t, err)

	require.NoError(t, sender.Seal(cwire.ListReq, []byte("a")))
	first := append([]byte(nil), buf.Bytes()...)

	_, _, err = receiver.Open(cwire.ListReq)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), receiver.Seq())

	// Replay the identical packet (same seq 0); receiver now expects seq 1.
	buf.Reset()
	buf.Write(first)
	_, _, err = receiver.Open(cwire.ListReq)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerr.ErrSeqMismatch))
}

func TestNearSeqWrapGuard(t *testing.T) {
	assert.False(t, NearSeqWrap(0))
	assert.False(t, NearSeqWrap(SeqMax-2))
	assert.True(t, NearSeqWrap(SeqMax-1))
	assert.True(t, NearSeqWrap(SeqMax))
}

func TestSessionNearWrapReflectsCurrentSeq(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()
	sess, err := New(&buf, key, SeqMax-1)
	require.NoError(t, err)
	assert.True(t, sess.NearWrap())
}

func TestSetRateLimitDoesNotBlockWithinBudget(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()
	sender, err := New(&buf, key, 0)
	require.NoError(t, err)
	sender.SetRateLimit(1 << 30) // 1GiB/s, effectively unlimited for a tiny payload

	done := make(chan error, 1)
	go func() { done <- sender.Seal(cwire.UploadChunk, bytes.Repeat([]byte{1}, 1024)) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Seal under a generous rate limit should not block")
	}
}

func TestCloseZeroizesKey(t *testing.T) {
	var buf bytes.Buffer
	key := testKey()
	sess, err := New(&buf, key, 0)
	require.NoError(t, err)
	sess.Close()
	var zero [KeySize]byte
	assert.Equal(t, zero, sess.key)
}
