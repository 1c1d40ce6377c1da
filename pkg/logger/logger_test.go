package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := New(zap.New(core))
	base.SetDebugMode(true)

	child := base.With(zap.String("user_id", "alice"))
	child.Warn("subscribe failed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "alice", logs.All()[0].ContextMap()["user_id"])
	assert.True(t, child.DebugMode())
}
