package session_janitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingEvicter struct {
	calls atomic.Int32
}

func (c *countingEvicter) EvictIdle() int {
	c.calls.Add(1)
	return 0
}

type panickingEvicter struct {
	calls atomic.Int32
}

func (p *panickingEvicter) EvictIdle() int {
	p.calls.Add(1)
	panic("registry exploded")
}

func TestJanitor_Sweeps(t *testing.T) {
	evicter := &countingEvicter{}
	j, err := NewJanitor(evicter, "@every 1s", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, j.Start(context.Background()))
	assert.Eventually(t, func() bool { return evicter.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.NoError(t, j.Shutdown(time.Second))
}

func TestJanitor_RecoversFromPanics(t *testing.T) {
	evicter := &panickingEvicter{}
	j, err := NewJanitor(evicter, "@every 1s", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, j.Start(context.Background()))
	assert.Eventually(t, func() bool { return evicter.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	assert.NoError(t, j.Shutdown(time.Second))
}

func TestNewJanitor_InvalidSpec(t *testing.T) {
	_, err := NewJanitor(&countingEvicter{}, "every now and then", zap.NewNop())
	assert.Error(t, err)
}

func TestNewJanitor_DefaultSpec(t *testing.T) {
	j, err := NewJanitor(&countingEvicter{}, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSpec, j.spec)
}
