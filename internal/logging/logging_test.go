package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"text":  FormatText,
		"TINT":  FormatText,
		"human": FormatText,
		"json":  FormatJSON,
		"auto":  FormatAuto,
		"":      FormatAuto,
		"xml":   FormatAuto,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseFormat(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewHandler_JSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo))

	log.Debug("hidden")
	log.Info("entry recorded", "size", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "entry recorded", rec["msg"])
	assert.EqualValues(t, 3, rec["size"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewHandler_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, FormatText, slog.LevelDebug))
	log.Debug("clipboard changed", "to", 7)

	out := buf.String()
	assert.Contains(t, out, "clipboard changed")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", Preview("a\nb\t c"))

	long := strings.Repeat("é", PreviewLen+10)
	got := Preview(long)
	assert.Equal(t, PreviewLen+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
