package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

type jobSnapshot struct {
	Status  string `json:"status"`
	Attempt int    `json:"attempt"`
}

func TestJobStatusRepositoryInMemoryRoundTrip(t *testing.T) {
	repo := NewJobStatusRepository(nil, time.Minute)

	require.NoError(t, repo.Save(context.Background(), "job-1", jobSnapshot{Status: "QUEUED"}))
	require.NoError(t, repo.Save(context.Background(), "job-1", jobSnapshot{Status: "PROCESSING", Attempt: 1}))

	var got jobSnapshot
	require.NoError(t, repo.Load(context.Background(), "job-1", &got))
	assert.Equal(t, jobSnapshot{Status: "PROCESSING", Attempt: 1}, got)
}

func TestJobStatusRepositoryInMemoryExpires(t *testing.T) {
	repo := NewJobStatusRepository(nil, time.Minute)
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(context.Background(), "job-1", jobSnapshot{Status: "FINISHED"}))
	now = now.Add(2 * time.Minute)

	var got jobSnapshot
	err := repo.Load(context.Background(), "job-1", &got)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, repo.Load(context.Background(), "missing", &got), appErrors.ErrNotFound)
}
