package duplication

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

func TestValidateDatabaseName(t *testing.T) {
	for _, ok := range []string{"acme", "acme_2024", "Acme.prod-1", "9lives"} {
		assert.NoError(t, ValidateDatabaseName(ok), ok)
	}
	for _, bad := range []string{"", "_acme", "acme; DROP", "ac me", "-x", `a"b`} {
		assert.ErrorIs(t, ValidateDatabaseName(bad), shared.ErrInvalidInput, bad)
	}
}

func TestIsBusyError(t *testing.T) {
	assert.True(t, IsBusyError(errors.New(`source database "acme" is being accessed by other users`)))
	assert.False(t, IsBusyError(errors.New("Access Denied")))
	assert.False(t, IsBusyError(nil))
}

func TestNewJob(t *testing.T) {
	job, err := NewJob("acme", "acme_copy", true)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.True(t, job.Neutralize)
	assert.NotEmpty(t, job.ID)

	_, err = NewJob("acme", "acme", false)
	assert.Error(t, err)

	_, err = NewJob("acme", "bad name", false)
	assert.Error(t, err)
}

func TestJob_Lifecycle(t *testing.T) {
	job, err := NewJob("acme", "acme_copy", false)
	require.NoError(t, err)

	assert.Error(t, job.Succeed())
	require.NoError(t, job.Start())
	assert.Error(t, job.Start())

	job.RecordAttempt()
	job.RecordAttempt()
	require.NoError(t, job.Succeed())

	assert.Equal(t, StatusSucceeded, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.NotNil(t, job.FinishedAt)
	assert.GreaterOrEqual(t, job.Duration().Nanoseconds(), int64(0))
	assert.ErrorIs(t, job.Fail(errors.New("late")), shared.ErrInvalidState)
}

func TestJob_FailRecordsError(t *testing.T) {
	job, err := NewJob("acme", "acme_copy", false)
	require.NoError(t, err)
	require.NoError(t, job.Start())

	require.NoError(t, job.Fail(errors.New("boom")))
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.Status.IsTerminal())
}

func TestJob_Snapshot(t *testing.T) {
	job, err := NewJob("acme", "acme_copy", false)
	require.NoError(t, err)
	require.NoError(t, job.Start())

	snap := job.Snapshot()
	require.NoError(t, job.Succeed())

	assert.Equal(t, StatusRunning, snap.Status)
	assert.Nil(t, snap.FinishedAt)
}
