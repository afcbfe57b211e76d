package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/database/testutil"
	"github.com/reelgate/reelgate/internal/models"
)

func seedResetUser(t *testing.T, db *gorm.DB, email, token string, expiresAt *time.Time) *models.User {
	t.Helper()

	user := &models.User{
		Email:               email,
		Password:            "hashed",
		Role:                models.RoleUser,
		Status:              models.StatusActive,
		ResetToken:          token,
		ResetTokenExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestClearExpiredResetTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := current.Add(-time.Minute)
	future := current.Add(time.Hour)

	expired := seedResetUser(t, db, "expired@example.com", "stale-token", &past)
	pending := seedResetUser(t, db, "pending@example.com", "live-token", &future)
	seedResetUser(t, db, "none@example.com", "", nil)

	cleaner := NewCleaner(db, nil, WithNow(func() time.Time { return current }))

	cleared, err := cleaner.ClearExpiredResetTokens(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	var got models.User
	require.NoError(t, db.Take(&got, "id = ?", expired.ID).Error)
	require.Empty(t, got.ResetToken)
	require.Nil(t, got.ResetTokenExpiresAt)

	got = models.User{}
	require.NoError(t, db.Take(&got, "id = ?", pending.ID).Error)
	require.Equal(t, "live-token", got.ResetToken)
	require.NotNil(t, got.ResetTokenExpiresAt)
}

func TestRunOnceCoversAllJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	recorder, err := audit.NewRecorder(db)
	require.NoError(t, err)

	require.NoError(t, recorder.Record(context.Background(), audit.Entry{
		Email: "old-event@example.com", Successful: true, Method: models.MethodCredentials,
	}))
	old := time.Now().AddDate(0, 0, -200)
	require.NoError(t, db.Model(&models.LoginEvent{}).
		Where("email = ?", "old-event@example.com").
		Update("created_at", old).Error)

	past := time.Now().Add(-time.Minute)
	seedResetUser(t, db, "runonce@example.com", "stale-token", &past)

	cleaner := NewCleaner(db, recorder, WithAuditRetentionDays(90))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var user models.User
	require.NoError(t, db.Take(&user, "email = ?", "runonce@example.com").Error)
	require.Empty(t, user.ResetToken)

	_, total, err := recorder.List(context.Background(), audit.ListOptions{
		Filters: audit.Filters{Email: "old-event@example.com"},
	})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cleaner := NewCleaner(db, nil, WithTokenSchedule("not-a-schedule"))
	err := cleaner.Start()
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cleaner := NewCleaner(db, nil)
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
