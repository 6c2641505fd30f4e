package audiomoth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKindOnly(t *testing.T) {
	var e1 = newErr(ErrHeaderInvalid, "missing fmt chunk")
	var e2 = newErr(ErrHeaderInvalid, "different message entirely")

	assert.ErrorIs(t, e1, e2)
	assert.ErrorIs(t, e1, Kind(ErrHeaderInvalid))
	assert.NotErrorIs(t, e1, Kind(ErrFilenameInvalid))
}

func TestError_WrapPreservesCauseForUnwrap(t *testing.T) {
	var cause = errors.New("disk full")
	var wrapped = wrapErr(ErrOutputWriteFailed, cause, "writing header")

	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.ErrorIs(t, wrapped, Kind(ErrOutputWriteFailed))
}

func TestError_MessageFormatting(t *testing.T) {
	var e = newErr(ErrInvalidArgument, "rate %d unrecognised", 44100)
	assert.Equal(t, "InvalidArgument: rate 44100 unrecognised", e.Error())

	var wrapped = wrapErr(ErrInputReadFailed, fmt.Errorf("EOF"), "reading chunk")
	assert.Equal(t, "InputReadFailed: reading chunk: EOF", wrapped.Error())
}

func TestErrorKind_StringCoversAllValues(t *testing.T) {
	for k := ErrInvalidArgument; k <= ErrSampleRateMismatch; k++ {
		assert.NotEqual(t, "Unknown", k.String())
	}
}
