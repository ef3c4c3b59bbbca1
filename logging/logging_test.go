package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDefaultLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf)

	l.Debug("hidden")
	l.WithFields(Fields{"component": "session"}).Info("started", Fields{"sample_rate": 44100})
	l.Error(errors.New("boom"), "failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "started", lines[0]["msg"])
	assert.Equal(t, "session", lines[0]["component"])
	assert.EqualValues(t, 44100, lines[0]["sample_rate"])
	assert.Equal(t, "boom", lines[1]["error"])

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("visible")
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestDefaultLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf)

	ctx := ContextWithFields(context.Background(), Fields{"session_id": "abc"})
	l.WithContext(ctx).Warn("late tick")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["session_id"])
	assert.Equal(t, "warning", lines[0]["level"])
}

func TestSetGlobalLogger_NilInstallsNoOp(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
	Info("dropped")
}
