package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run, entries := createTestRun(id, testStart.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.WriteRun(ctx, run, entries))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-a", runs[2].ID)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.ReadRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.LatestRun(ctx)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	older, entries := createTestRun("old", testStart)
	require.NoError(t, s.WriteRun(ctx, older, entries))
	newer, entries := createTestRun("new", testStart.Add(time.Hour))
	require.NoError(t, s.WriteRun(ctx, newer, entries))

	run, got, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", run.ID)
	assert.Len(t, got, 3)
	require.NotNil(t, got[2].Timing)
	assert.Equal(t, 1500*time.Millisecond, got[2].Timing.Mean)
}
