package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (*countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RegisterValidation(t *testing.T) {
	t.Parallel()
	s := NewScheduler(nil)

	_, err := s.Register("@every 1m", nil)
	assert.Error(t, err)

	_, err = s.Register("", &countingJob{})
	assert.Error(t, err)

	_, err = s.Register("not a cron", &countingJob{})
	assert.Error(t, err)

	_, err = s.Register("*/5 * * * *", &countingJob{})
	assert.NoError(t, err)

	_, err = s.Register("*/10 * * * * *", &countingJob{})
	assert.NoError(t, err, "seconds field is optional")
}

func TestScheduler_RunsJobs(t *testing.T) {
	t.Parallel()
	s := NewScheduler(nil)

	ok := &countingJob{}
	failing := &countingJob{err: errors.New("boom")}
	_, err := s.Register("@every 1s", ok)
	require.NoError(t, err)
	_, err = s.Register("@every 1s", failing)
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool {
		return ok.runs.Load() > 0 && failing.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	<-s.Stop().Done()
	<-s.Stop().Done()
}
