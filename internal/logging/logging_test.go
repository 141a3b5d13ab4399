package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TRACE,
		"DEBUG":   DEBUG,
		"":        INFO,
		"warning": WARN,
		" error ": ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestComponentLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	lm := newLoggerManager()
	logger, err := lm.GetLogger("light")
	require.NoError(t, err)

	same, err := lm.GetLogger("light")
	require.NoError(t, err)
	assert.Same(t, logger, same)
	assert.Equal(t, []string{"light"}, lm.ListComponents())

	logger.SetLevels(ERROR, DEBUG)
	logger.Debug("chunk %d:%d relit", 1, 2)
	logger.Trace("not written")
	require.NoError(t, lm.CloseAll())

	files, err := filepath.Glob(filepath.Join(dir, "light_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[DEBUG] chunk 1:2 relit"))
	assert.False(t, strings.Contains(string(data), "not written"))
}

func TestSetLogLevelUnknownComponent(t *testing.T) {
	lm := newLoggerManager()
	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))
}

func TestHexDumpLimit(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1024))
	assert.Equal(t, 16, strings.Count(dump, "\n"))
}

func TestSetAllLevelsAppliesToNewLoggers(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	lm := newLoggerManager()
	lm.SetAllLevels(WARN)

	logger, err := lm.GetLogger(ComponentNetwork)
	require.NoError(t, err)
	defer lm.CloseAll()

	assert.False(t, logger.Enabled(TRACE))
	assert.True(t, logger.Enabled(DEBUG), "файл пишет начиная с DEBUG")
	assert.True(t, logger.Enabled(WARN))

	lm.SetAllLevels(TRACE)
	assert.True(t, logger.Enabled(TRACE))
	assert.NoError(t, lm.SetLogLevel(ComponentNetwork, ERROR, ERROR))
	assert.False(t, logger.Enabled(WARN))
}
