package creation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	start := time.Unix(1000, 0)
	tests := []struct {
		elapsed  time.Duration
		stage    int
		complete bool
	}{
		{0, 0, false},
		{-time.Second, 0, false},
		{1999 * time.Millisecond, 0, false},
		{2 * time.Second, 1, false},
		{5 * time.Second, 2, false},
		{6 * time.Second, 3, false},
		{7999 * time.Millisecond, 3, false},
		{8 * time.Second, 3, true},
		{time.Hour, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			p := Compute(start, start.Add(tt.elapsed), 2*time.Second)
			assert.Equal(t, tt.stage, p.Stage)
			assert.Equal(t, tt.complete, p.Complete)
			assert.Equal(t, tt.complete, p.Closable)
			assert.Equal(t, stages[tt.stage].Title, p.Title)
		})
	}
}

func TestComputeStageStates(t *testing.T) {
	start := time.Unix(0, 0)
	p := Compute(start, start.Add(4*time.Second), 2*time.Second)
	states := []StageState{p.Stages[0].State, p.Stages[1].State, p.Stages[2].State, p.Stages[3].State}
	assert.Equal(t, []StageState{StateDone, StateDone, StateActive, StatePending}, states)

	done := Compute(start, start.Add(8*time.Second), 2*time.Second)
	for _, s := range done.Stages {
		assert.Equal(t, StateDone, s.State)
	}
}

func TestTrackerLifecycle(t *testing.T) {
	now := time.Unix(5000, 0)
	var completed []string
	tr := NewTracker(2*time.Second, func(_ context.Context, id string) error {
		completed = append(completed, id)
		return nil
	})
	tr.now = func() time.Time { return now }

	p := tr.Start("c1")
	assert.Equal(t, 0, p.Stage)

	closed, err := tr.Close(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, closed)

	now = now.Add(8 * time.Second)
	p, err = tr.Poll(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, p.Complete)
	_, err = tr.Poll(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, completed)

	closed, err = tr.Close(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = tr.Poll(context.Background(), "c1")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestTrackerRetriesFailedCompletion(t *testing.T) {
	now := time.Unix(0, 0)
	calls := 0
	tr := NewTracker(time.Second, func(context.Context, string) error {
		calls++
		if calls == 1 {
			return errors.New("db down")
		}
		return nil
	})
	tr.now = func() time.Time { return now }
	tr.Start("c1")
	now = now.Add(10 * time.Second)

	_, err := tr.Poll(context.Background(), "c1")
	assert.Error(t, err)
	_, err = tr.Poll(context.Background(), "c1")
	assert.NoError(t, err)
	_, err = tr.Poll(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTrackerDiscard(t *testing.T) {
	tr := NewTracker(time.Second, nil)
	tr.Start("c1")
	tr.Discard("c1")
	tr.Discard("missing")
	_, err := tr.Poll(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestTrackerCloseCompletesUnpolledRun(t *testing.T) {
	now := time.Unix(0, 0)
	calls := 0
	fail := true
	tr := NewTracker(time.Second, func(context.Context, string) error {
		calls++
		if fail {
			return errors.New("db down")
		}
		return nil
	})
	tr.now = func() time.Time { return now }
	tr.Start("c1")
	now = now.Add(10 * time.Second)

	closed, err := tr.Close(context.Background(), "c1")
	assert.Error(t, err)
	assert.False(t, closed)

	fail = false
	closed, err = tr.Close(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 2, calls)

	_, err = tr.Poll(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestTrackerCloseAfterPollDoesNotRepeatCompletion(t *testing.T) {
	now := time.Unix(0, 0)
	calls := 0
	tr := NewTracker(time.Second, func(context.Context, string) error {
		calls++
		return nil
	})
	tr.now = func() time.Time { return now }
	tr.Start("c1")
	now = now.Add(10 * time.Second)

	_, err := tr.Poll(context.Background(), "c1")
	require.NoError(t, err)
	closed, err := tr.Close(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 1, calls)
}
