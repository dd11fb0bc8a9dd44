package session_janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs the sweep every minute
const DefaultSpec = "@every 1m"

// Evicter is the part of the widget registry the janitor sweeps
type Evicter interface {
	EvictIdle() int
}

// Janitor periodically closes idle widget sessions
type Janitor struct {
	evicter Evicter
	spec    string
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewJanitor validates spec and schedules the sweep. An empty spec uses DefaultSpec.
func NewJanitor(evicter Evicter, spec string, logger *zap.Logger) (*Janitor, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	j := &Janitor{
		evicter: evicter,
		spec:    spec,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger:  logger,
	}
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	return j, nil
}

// Start begins the schedule
func (j *Janitor) Start(_ context.Context) error {
	j.logger.Info("Starting session janitor", zap.String("schedule", j.spec))
	j.cron.Start()
	return nil
}

// Shutdown stops the schedule and waits for a running sweep
func (j *Janitor) Shutdown(timeout time.Duration) error {
	ctx := j.cron.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (j *Janitor) sweep() {
	evicted := j.evicter.EvictIdle()
	j.logger.Debug("Session sweep finished", zap.Int("evicted", evicted))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
