package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		"debug":         {raw: "debug", want: zerolog.DebugLevel, wantOK: true},
		"mixed case":    {raw: " WARN ", want: zerolog.WarnLevel, wantOK: true},
		"warning alias": {raw: "warning", want: zerolog.WarnLevel, wantOK: true},
		"off":           {raw: "off", want: zerolog.Disabled, wantOK: true},
		"empty":         {raw: "", want: zerolog.InfoLevel, wantOK: false},
		"unknown":       {raw: "loud", want: zerolog.InfoLevel, wantOK: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestConfigureWritesToOutput(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogNoColor, "1")

	var buf bytes.Buffer
	Configure(ProfileRuntime, WithOutput(&buf), WithDebug(true))
	defer Configure(ProfileTest)

	log.Debug().Str("package", "core").Msg("resolved")
	assert.Contains(t, buf.String(), "resolved")
	assert.Contains(t, buf.String(), "package=core")
}

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	Configure(ProfileRuntime, WithOutput(&buf), WithDebug(true))

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())
	Configure(ProfileTest)
}
