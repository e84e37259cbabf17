package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAnnounceRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	announceRun(zap.New(core))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "rotated-MNIST evaluation", logs.All()[0].Message)
}
