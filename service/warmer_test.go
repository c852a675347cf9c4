package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingModel struct {
	calls atomic.Int32
	err   error
}

func (m *countingModel) Warm(ctx context.Context) error {
	m.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return m.err
}

func TestWarmer_Run(t *testing.T) {
	m := &countingModel{}
	w, err := NewWarmer(m, "@every 1h", time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)

	w.run()
	assert.Equal(t, int32(1), m.calls.Load())

	m.err = errors.New("backend down")
	w.run()
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestWarmer_Schedule(t *testing.T) {
	m := &countingModel{}
	w, err := NewWarmer(m, "@every 1s", time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)

	w.Start()
	defer func() { <-w.Stop().Done() }()

	assert.Eventually(t, func() bool { return m.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestNewWarmer_InvalidSchedule(t *testing.T) {
	_, err := NewWarmer(&countingModel{}, "every ten minutes", time.Second, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm schedule")
}
