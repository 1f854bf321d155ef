package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

func TestNew_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	l.Debug().Msg("no se emite")
	comp := l.Component("sunat")
	comp.Info().Str("transmission_id", "tx-1").Msg("[SUNAT] enviando")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), "una sola línea JSON")
	assert.Equal(t, "sunat", line["component"])
	assert.Equal(t, "tx-1", line["transmission_id"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_LevelParsing(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: " DEBUG ", Output: &buf})
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
