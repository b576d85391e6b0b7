package spinner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerDrawsLabelAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := Dots2.New(&buf)
	s.Start()
	s.SetLabel("Search company information")
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "\r\033[K⠋")
	assert.Contains(t, out, " Search company information")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\r\033[K")))
}
