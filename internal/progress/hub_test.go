package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "channel closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestBegin_MintsRunID(t *testing.T) {
	hub := NewHub(0)

	r1, err := hub.Begin("")
	require.NoError(t, err)
	r2, err := hub.Begin("")
	require.NoError(t, err)

	assert.NotEmpty(t, r1.RunID())
	assert.NotEqual(t, r1.RunID(), r2.RunID())
	assert.Equal(t, DefaultRetention, hub.retention)
}

func TestReporterLifecycle(t *testing.T) {
	hub := NewHub(time.Minute)
	r, err := hub.Begin("run-1")
	require.NoError(t, err)

	r.Reading()
	assert.Equal(t, StatusReading, hub.Snapshot("run-1").Status)

	r.Processing(3)
	s := hub.Snapshot("run-1")
	assert.Equal(t, StatusProcessing, s.Status)
	assert.Equal(t, 3, s.TotalQuestions)
	assert.Equal(t, "Found 3 questions. Starting translation...", s.Message)

	r.Question(2, 3)
	s = hub.Snapshot("run-1")
	assert.Equal(t, StatusProcessingQuestion, s.Status)
	assert.Equal(t, 2, s.CurrentQuestion)
	assert.Equal(t, "Processing question 2 of 3", s.Message)

	r.Completed(3)
	s = hub.Snapshot("run-1")
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, 3, s.CurrentQuestion)
	assert.True(t, s.Status.Terminal())

	// nothing overwrites a finished run
	r.Question(1, 3)
	assert.Equal(t, StatusCompleted, hub.Snapshot("run-1").Status)
}

func TestCurrentQuestionNeverDecreases(t *testing.T) {
	hub := NewHub(time.Minute)
	r, err := hub.Begin("run-1")
	require.NoError(t, err)

	r.Processing(5)
	r.Question(3, 5)
	r.Question(2, 5)
	assert.Equal(t, 3, hub.Snapshot("run-1").CurrentQuestion)

	r.Failed("boom")
	s := hub.Snapshot("run-1")
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, 3, s.CurrentQuestion)
	assert.Equal(t, 5, s.TotalQuestions)
	assert.Equal(t, "boom", s.Message)
}

func TestRunsAreIsolated(t *testing.T) {
	hub := NewHub(time.Minute)
	a, err := hub.Begin("a")
	require.NoError(t, err)
	b, err := hub.Begin("b")
	require.NoError(t, err)

	a.Processing(10)
	a.Question(7, 10)
	b.Processing(2)
	b.Question(1, 2)

	assert.Equal(t, 7, hub.Snapshot("a").CurrentQuestion)
	assert.Equal(t, 1, hub.Snapshot("b").CurrentQuestion)

	// the alias follows the most recently started run
	assert.Equal(t, "b", hub.Snapshot("").RunID)
}

func TestBegin_ActiveRunRejected(t *testing.T) {
	hub := NewHub(time.Minute)
	r, err := hub.Begin("dup")
	require.NoError(t, err)
	r.Processing(1)

	_, err = hub.Begin("dup")
	assert.True(t, errors.Is(err, ErrRunInProgress))

	r.Completed(1)
	_, err = hub.Begin("dup")
	assert.NoError(t, err, "a finished run id may be reused")
}

func TestSnapshot_Unknown(t *testing.T) {
	hub := NewHub(time.Minute)

	s := hub.Snapshot("nope")
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, "nope", s.RunID)
	assert.Equal(t, StatusIdle, hub.Snapshot("").Status)
}

func TestSubscribe_BeforeBegin(t *testing.T) {
	hub := NewHub(time.Minute)

	ch, cancel := hub.Subscribe("early")
	defer cancel()
	assert.Equal(t, StatusIdle, receive(t, ch).Status)

	r, err := hub.Begin("early")
	require.NoError(t, err)
	receive(t, ch) // reset to idle

	r.Processing(4)
	s := receive(t, ch)
	assert.Equal(t, StatusProcessing, s.Status)
	assert.Equal(t, 4, s.TotalQuestions)
}

func TestSubscribe_LatestWins(t *testing.T) {
	hub := NewHub(time.Minute)
	r, err := hub.Begin("run")
	require.NoError(t, err)

	ch, cancel := hub.Subscribe("run")
	defer cancel()

	// nobody reads while the run advances
	r.Processing(5)
	for i := 1; i <= 5; i++ {
		r.Question(i, 5)
	}

	s := receive(t, ch)
	assert.Equal(t, 5, s.CurrentQuestion)
	assert.Equal(t, StatusProcessingQuestion, s.Status)
}

func TestSubscribe_Alias(t *testing.T) {
	hub := NewHub(time.Minute)

	ch, cancel := hub.Subscribe("")
	defer cancel()
	assert.Equal(t, StatusIdle, receive(t, ch).Status)

	r, err := hub.Begin("")
	require.NoError(t, err)
	receive(t, ch)

	r.Completed(0)
	s := receive(t, ch)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, r.RunID(), s.RunID)
}

func TestSubscribe_Cancel(t *testing.T) {
	hub := NewHub(time.Minute)
	ch, cancel := hub.Subscribe("run")
	receive(t, ch)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
}

func TestPrune(t *testing.T) {
	hub := NewHub(time.Minute)
	now := time.Now()
	hub.now = func() time.Time { return now }

	old, err := hub.Begin("old")
	require.NoError(t, err)
	old.Completed(1)

	active, err := hub.Begin("active")
	require.NoError(t, err)
	active.Processing(2)

	now = now.Add(2 * time.Minute)
	_, err = hub.Begin("new")
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Runs())
	assert.Equal(t, StatusIdle, hub.Snapshot("old").Status)
	assert.Equal(t, StatusProcessing, hub.Snapshot("active").Status)
}

func TestConcurrentUpdates(t *testing.T) {
	hub := NewHub(time.Minute)
	r, err := hub.Begin("run")
	require.NoError(t, err)
	r.Processing(100)

	ch, cancel := hub.Subscribe("run")
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for s := range ch {
			assert.GreaterOrEqual(t, s.CurrentQuestion, last, "current_question went backwards")
			last = s.CurrentQuestion
			if s.Status.Terminal() {
				return
			}
		}
	}()

	for i := 1; i <= 100; i++ {
		r.Question(i, 100)
	}
	r.Completed(100)
	wg.Wait()
}
