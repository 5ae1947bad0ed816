package logger_adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"outreach-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	mu     sync.Mutex
	tags   []string
	posted []map[string]interface{}
}

func (p *fakePoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tag)
	p.posted = append(p.posted, message.(port.Fields))
	return nil
}

func (p *fakePoster) Close() error { return nil }

func TestSlogAdapter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, IsJSON: true, Level: slog.LevelDebug})

	logger.WithFields(port.Fields{"use_case": "RunIngestion"}).
		Error("Adapter failed", errors.New("timeout"), port.Fields{"portal": "alpha"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Adapter failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "RunIngestion", entry["use_case"])
	assert.Equal(t, "alpha", entry["portal"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestSlogAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	logger.Info("hidden", nil)
	logger.Debug("hidden", nil)
	assert.Zero(t, buf.Len())

	logger.Warn("shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestFluentLoggerAdapter_PostsMergedFields(t *testing.T) {
	poster := &fakePoster{}
	logger, err := NewFluentLoggerAdapter(poster, slog.LevelInfo)
	require.NoError(t, err)

	child := logger.WithFields(port.Fields{"service_name": "outreach"})
	child.Debug("dropped", nil)
	child.Info("kept", port.Fields{"run_id": "r1"})

	require.Len(t, poster.posted, 1)
	assert.Equal(t, "info", poster.tags[0])
	assert.Equal(t, "outreach", poster.posted[0]["service_name"])
	assert.Equal(t, "r1", poster.posted[0]["run_id"])
	assert.Equal(t, "kept", poster.posted[0]["message"])
	assert.NotEmpty(t, poster.posted[0]["timestamp"])

	_, err = NewFluentLoggerAdapter(nil, nil)
	assert.Error(t, err)
}

func TestMultiLogger(t *testing.T) {
	_, err := NewMultiloggerAdapter()
	assert.Error(t, err)

	a, b := &fakePoster{}, &fakePoster{}
	la, _ := NewFluentLoggerAdapter(a, slog.LevelDebug)
	lb, _ := NewFluentLoggerAdapter(b, slog.LevelDebug)

	single, err := NewMultiloggerAdapter(la, nil)
	require.NoError(t, err)
	assert.Same(t, la, single)

	multi, err := NewMultiloggerAdapter(la, lb)
	require.NoError(t, err)
	multi.WithFields(port.Fields{"k": "v"}).Warn("both", nil)

	require.Len(t, a.posted, 1)
	require.Len(t, b.posted, 1)
	assert.Equal(t, "v", b.posted[0]["k"])
}
