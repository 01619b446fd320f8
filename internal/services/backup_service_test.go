package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qajalicense/internal/backup"
)

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) RunOnce(ctx context.Context) (*backup.RunResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.RunResult), args.Error(1)
}

func (m *mockScheduler) Status() backup.Status {
	return m.Called().Get(0).(backup.Status)
}

func (m *mockScheduler) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestBackupServiceDisabled(t *testing.T) {
	svc := NewBackupService(nil, nil)

	_, err := svc.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBackupsDisabled)

	stopped, err := svc.Stop(context.Background())
	assert.ErrorIs(t, err, ErrBackupsDisabled)
	assert.False(t, stopped)

	st := svc.Status()
	assert.False(t, st.Enabled)
	assert.Nil(t, st.Scheduler)
}

func TestBackupServiceRunNow(t *testing.T) {
	sched := &mockScheduler{}
	result := &backup.RunResult{
		StartedAt:     time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		TotalLicenses: 3,
		Sinks:         []backup.SinkResult{{Sink: "file", Object: "licenses-backup-x.json", Bytes: 120}},
	}
	sched.On("RunOnce", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline
	})).Return(result, nil)

	got, err := NewBackupService(sched, nil).RunNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, got)
	sched.AssertExpectations(t)
}

func TestBackupServiceRunNowPartialFailure(t *testing.T) {
	sched := &mockScheduler{}
	result := &backup.RunResult{Sinks: []backup.SinkResult{{Sink: "s3", Error: "access denied"}}}
	sched.On("RunOnce", mock.Anything).Return(result, errors.New("backup failed for sinks [s3]"))

	got, err := NewBackupService(sched, nil).RunNow(context.Background())
	assert.Error(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Failed())
}

func TestBackupServiceStop(t *testing.T) {
	tests := []struct {
		name        string
		running     bool
		stopErr     error
		wantStopped bool
		wantErr     bool
	}{
		{name: "running", running: true, wantStopped: true},
		{name: "not running", running: false, wantStopped: false},
		{name: "stop fails", running: true, stopErr: context.DeadlineExceeded, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &mockScheduler{}
			sched.On("Status").Return(backup.Status{Running: tt.running, Schedule: "@daily"})
			if tt.running {
				sched.On("Stop", mock.Anything).Return(tt.stopErr)
			}

			stopped, err := NewBackupService(sched, nil).Stop(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStopped, stopped)
			sched.AssertExpectations(t)
		})
	}
}

func TestBackupServiceStatus(t *testing.T) {
	sched := &mockScheduler{}
	sched.On("Status").Return(backup.Status{Running: true, Schedule: "@daily", Sinks: []string{"file", "s3"}})

	st := NewBackupService(sched, nil).Status()
	assert.True(t, st.Enabled)
	require.NotNil(t, st.Scheduler)
	assert.Equal(t, []string{"file", "s3"}, st.Scheduler.Sinks)
}
