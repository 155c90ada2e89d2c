package common

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogHelpers(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupLogger(&buf, slog.LevelDebug, "json")

	LogInfo("rules applied", Fields{"updated": 3, "total": 10})
	LogError(errors.New("boom"), "admit failed", Fields{"file": "a.csv"})
	LogDebug("details", nil)

	out := buf.String()
	assert.Contains(t, out, `"msg":"rules applied"`)
	assert.Contains(t, out, `"updated":3`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"file":"a.csv"`)
	assert.Contains(t, out, `"msg":"details"`)
}
