package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.log")
	l := NewIsolatedLogger(path)

	l.Debug("Gate", "not written below info", nil)
	l.Info("Gate", "utterance dispatched", map[string]interface{}{"run": 1})
	l.Error("Pipeline", "extraction failed", map[string]interface{}{"error": errors.New("boom").Error()})
	_ = l.Sync()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "Gate", lines[0]["module"])
	assert.Equal(t, "utterance dispatched", lines[0]["message"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Contains(t, lines[1], "error_ref")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("Any", "ignored", nil)
	assert.NoError(t, l.Sync())
}
