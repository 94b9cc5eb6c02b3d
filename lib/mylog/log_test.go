package mylog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newStandardLoggerTo(buf, "checkout")

	logger.Log(context.TODO(), "42", SeverityWarn, "order %d not found", 42)

	line := buf.String()
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, "component=checkout")
	assert.Contains(t, line, "aggregate=42")
	assert.Contains(t, line, `msg="order 42 not found"`)
}

func TestGcloudLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newGcloudLoggerTo(buf, "shipping")

	logger.Log(context.TODO(), "", SeverityError, "quote failed: %s", "timeout")

	entry := map[string]any{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	assert.NoError(t, err)
	assert.Equal(t, "ERROR", entry["severity"])
	assert.Equal(t, "shipping:quote failed: timeout", entry["message"])
	assert.Equal(t, "shipping", entry["component"])
	assert.NotContains(t, entry, "time")
}
