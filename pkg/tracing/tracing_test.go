package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 0.1, SampleRate("production"))
	assert.Equal(t, 0.5, SampleRate("staging"))
	assert.Equal(t, 1.0, SampleRate("development"))
}
