package cerr

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := os.ErrClosed
	err := Wrap(ErrAuthFail, cause, "verifying tag for seq %d", 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthFail))
	assert.False(t, errors.Is(err, ErrStorage))
}

func TestCauseRecoversOriginalError(t *testing.T) {
	cause := os.ErrClosed
	err := Wrap(ErrIo, cause, "reading header")
	assert.Equal(t, cause, Cause(err))
}

func TestCauseNilWhenNotWrapped(t *testing.T) {
	assert.Nil(t, Cause(errors.New("plain")))
}

func TestWrapWithNilCause(t *testing.T) {
	err := Wrap(ErrOversizedField, nil, "declared length %d exceeds limit", 1<<30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOversizedField))
	assert.Nil(t, Cause(err))
}

func TestIsFatalClassification(t *testing.T) {
	fatal := []error{ErrAuthFail, ErrSeqMismatch, ErrTruncated, ErrOversizedField, ErrUnexpectedType, ErrTimeout, ErrIo}
	for _, sentinel := range fatal {
		err := Wrap(sentinel, nil, "boom")
		assert.True(t, IsFatal(err), "%v should be fatal", sentinel)
	}

	notFatal := []error{ErrStorage, ErrPolicy, ErrProtocol}
	for _, sentinel := range notFatal {
		err := Wrap(sentinel, nil, "boom")
		assert.False(t, IsFatal(err), "%v should not be fatal", sentinel)
	}
}

func TestCommandLocalIsComplementOfFatal(t *testing.T) {
	assert.True(t, CommandLocal(Wrap(ErrStorage, nil, "disk full")))
	assert.False(t, CommandLocal(Wrap(ErrAuthFail, nil, "bad tag")))
	assert.False(t, CommandLocal(nil))
}
