package audiomoth

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_WritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	var logger = NewLogger(&buf, "split")

	logger.Info("starting split", "input", "x.wav")

	assert.Contains(t, buf.String(), "split")
	assert.Contains(t, buf.String(), "starting split")
}

func TestDiscardLogger_NeverPanicsOrWrites(t *testing.T) {
	var logger = discardLogger("sync")
	logger.Info("this goes nowhere")
}
