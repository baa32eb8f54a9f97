package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type testConfig struct {
	level, output, file string
}

func (c testConfig) GetLevel() string  { return c.level }
func (c testConfig) GetOutput() string { return c.output }
func (c testConfig) GetFile() string   { return c.file }

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestInitFileOutput(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, Init(testConfig{level: "info", output: "stdout"}))
	})

	path := filepath.Join(t.TempDir(), "grants.log")
	require.NoError(t, Init(testConfig{level: "warn", output: "file", file: path}))

	Info("dropped %d", 1)
	Warn("subscription %s cancelled", "0xabc")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "subscription 0xabc cancelled", entry["message"])
	assert.Equal(t, "grants", entry["service"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestInitFileOutputRequiresPath(t *testing.T) {
	assert.Error(t, Init(testConfig{output: "file"}))
}
