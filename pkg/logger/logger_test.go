package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekk0s/nfe-ledger/pkg/logger"
)

func TestNew_JSONConNivelYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	l.Info().Msg("descartado")
	l.Named("ingesta").Warn().Str("fuente", "a.xml").Msg("documento duplicado")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "info queda por debajo del nivel warn")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "ingesta", entry["component"])
	assert.Equal(t, "a.xml", entry["fuente"])
	assert.Equal(t, "documento duplicado", entry["message"])
}

func TestNop_NoEscribe(t *testing.T) {
	l := logger.Nop()
	assert.NotPanics(t, func() { l.Error().Msg("nada") })
}

func TestNew_NivelDesconocidoEsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Level: "ruidoso", Output: &buf})
	assert.Equal(t, zerolog.InfoLevel, l.Level())

	l.Debug().Msg("descartado")
	assert.Zero(t, buf.Len())

	l = logger.New(logger.Config{Level: " DEBUG ", Output: &buf})
	assert.Equal(t, zerolog.DebugLevel, l.Level())
}

func TestPrintf_EscribeWarn(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Output: &buf})
	l.Printf("consulta lenta %dms\n", 250)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "consulta lenta 250ms", entry["message"])
}
