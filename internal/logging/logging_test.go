package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestComponent_JSONOutputCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", "json", &buf)
	defer Setup("info", "json", &bytes.Buffer{})

	For("optimizer").Info().Int("cells", 3).Msg("done")

	out := buf.String()
	assert.Contains(t, out, `"component":"optimizer"`)
	assert.Contains(t, out, `"cells":3`)
	assert.Contains(t, out, `"message":"done"`)
}

func TestComponent_DebugDisabled(t *testing.T) {
	var buf bytes.Buffer
	Setup("info", "json", &buf)

	log := For("engine")
	assert.False(t, log.Enabled())
	assert.Nil(t, log.Debug())
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	Setup("debug", "json", &buf)
	assert.True(t, log.Enabled())
	log.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	Setup("info", "json", &bytes.Buffer{})
}

func BenchmarkComponent_DebugDisabled(b *testing.B) {
	Setup("info", "json", &bytes.Buffer{})
	log := For("benchmark")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Debug().Str("key", "value").Int("number", 42).Msg("test message")
	}
}
