package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, WarnLogger)
	assert.NotNil(t, ErrorLogger)
	assert.NotNil(t, DebugLogger)
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	Init()
	InfoLogger = log.New(&buf, "INFO: ", 0)

	Info("membership assigned")

	assert.Contains(t, buf.String(), "membership assigned")
}

func TestInfof(t *testing.T) {
	var buf bytes.Buffer
	Init()
	InfoLogger = log.New(&buf, "INFO: ", 0)

	Infof("reservation %d confirmed", 42)

	assert.Contains(t, buf.String(), "reservation 42 confirmed")
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	Init()
	ErrorLogger = log.New(&buf, "ERROR: ", 0)

	Error("promotion failed")

	assert.Contains(t, buf.String(), "promotion failed")
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	Init()
	WarnLogger = log.New(&buf, "WARN: ", 0)

	Warnf("sweep skipped: %v", "no rows")

	assert.Contains(t, buf.String(), "sweep skipped: no rows")
}

func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	Init()
	DebugLogger = log.New(&buf, "DEBUG: ", 0)

	Debugf("class %d locked", 7)

	assert.Contains(t, buf.String(), "class 7 locked")
}
