package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("POS_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")
	assert.Equal(t, "console", Get("LOG_FORMAT", "x"))
	assert.Equal(t, "console", Get("pos_log_format", "x"))
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("POS_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "json")
	assert.Equal(t, "json", Get("LOG_FORMAT", "x"))

	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, "x", Get("LOG_FORMAT", "x"))
}
