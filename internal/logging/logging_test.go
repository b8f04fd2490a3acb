package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/ajanata/pico-drivers/internal/config"
)

func TestProdIsJSON(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	cfg.Env = "prod"
	cfg.LogLevel = "warn"
	var buf bytes.Buffer
	logger := New(cfg, &buf, "picoboard")

	logger.Info("hidden")
	c.Assert(buf.Len(), qt.Equals, 0)

	logger.Warn("sample failed", "board", "clock")
	var rec map[string]any
	c.Assert(json.Unmarshal(buf.Bytes(), &rec), qt.IsNil)
	c.Assert(rec["msg"], qt.Equals, "sample failed")
	c.Assert(rec["app"], qt.Equals, "picoboard")
	c.Assert(rec["env"], qt.Equals, "prod")
	c.Assert(rec["board"], qt.Equals, "clock")
}

func TestDevIsText(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	logger := New(config.Default(), &buf, "picoboard")
	logger.Debug("hidden")
	logger.Info("started")
	c.Assert(buf.String(), qt.Contains, "started")
	c.Assert(buf.String(), qt.Not(qt.Contains), "hidden")
}
