package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedLimiter(t *testing.T) (pgxmock.PgxPoolIface, *RateLimiter) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewRateLimiterWithDB(mock, time.Minute)
}

func expectCounterQuery(mock pgxmock.PgxPoolIface, count int) {
	rows := pgxmock.NewRows([]string{"count"}).AddRow(count)
	mock.ExpectQuery("WITH current_count AS").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)
}

func TestRateLimiter_CheckIdentifyLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		mockCount int
		wantErr   string
	}{
		{name: "within limit", limit: 30, mockCount: 10},
		{name: "at limit boundary", limit: 30, mockCount: 30},
		{name: "exceeds limit", limit: 30, mockCount: 31, wantErr: "rate limit exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, rl := newMockedLimiter(t)
			expectCounterQuery(mock, tt.mockCount)

			err := rl.CheckIdentifyLimit(context.Background(), "client-a", tt.limit)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRateLimiter_CheckIdentifyLimit_Unlimited(t *testing.T) {
	// Zero or negative limits disable the check entirely; the counter table
	// is never touched
	mock, rl := newMockedLimiter(t)

	require.NoError(t, rl.CheckIdentifyLimit(context.Background(), "client-a", 0))
	require.NoError(t, rl.CheckIdentifyLimit(context.Background(), "client-a", -1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_CleanupExpired(t *testing.T) {
	mock, rl := newMockedLimiter(t)

	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	deleted, err := rl.CleanupExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_GetCurrentCount(t *testing.T) {
	mock, rl := newMockedLimiter(t)

	rows := pgxmock.NewRows([]string{"count"}).AddRow(15)
	mock.ExpectQuery("SELECT count").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	count, err := rl.GetCurrentCount(context.Background(), "client-a")

	require.NoError(t, err)
	assert.Equal(t, 15, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_GetCurrentCount_NoCounter(t *testing.T) {
	mock, rl := newMockedLimiter(t)

	mock.ExpectQuery("SELECT count").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	count, err := rl.GetCurrentCount(context.Background(), "client-b")

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_ResetLimit(t *testing.T) {
	mock, rl := newMockedLimiter(t)

	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, rl.ResetLimit(context.Background(), "client-a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
