package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Equal(t, 0, buf.Len())

	logger.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
}

func TestNewEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.Info().Str("dataset", "embeddings").Msg("opened")
	out := buf.String()
	assert.Contains(t, out, `"dataset":"embeddings"`)
	assert.Contains(t, out, `"message":"opened"`)
}
