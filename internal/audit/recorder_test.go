package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelgate/reelgate/internal/database/testutil"
	"github.com/reelgate/reelgate/internal/models"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r, err := NewRecorder(db)
	require.NoError(t, err)
	return r
}

func seedEventUser(t *testing.T, r *Recorder, email string) string {
	t.Helper()

	user := &models.User{
		Email:    email,
		Password: "hashed",
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	require.NoError(t, r.db.Create(user).Error)
	return user.ID
}

func TestRecordPersistsEntry(t *testing.T) {
	r := newTestRecorder(t)
	userID := seedEventUser(t, r, "audit-owner@example.com")

	err := r.Record(context.Background(), Entry{
		UserID:        &userID,
		Email:         "Audit@Example.com",
		Successful:    false,
		Method:        models.MethodCredentials,
		FailureReason: "Invalid password",
		IPAddress:     "203.0.113.9",
		UserAgent:     "curl/8.0",
		Device:        "cli",
		Metadata:      map[string]any{"attempt": float64(3)},
	})
	require.NoError(t, err)

	events, total, err := r.List(context.Background(), ListOptions{
		Filters: Filters{Email: "audit@example.com"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, events, 1)

	event := events[0]
	require.NotEmpty(t, event.ID)
	require.NotNil(t, event.UserID)
	require.Equal(t, userID, *event.UserID)
	require.Equal(t, "audit@example.com", event.Email)
	require.False(t, event.Successful)
	require.Equal(t, models.MethodCredentials, event.Method)
	require.Equal(t, "Invalid password", event.FailureReason)
	require.Equal(t, "203.0.113.9", event.IPAddress)
}

func TestRecordRequiresMethod(t *testing.T) {
	r := newTestRecorder(t)

	err := r.Record(context.Background(), Entry{Email: "nomethod@example.com"})
	require.Error(t, err)
}

func TestRecordAcceptsNilUser(t *testing.T) {
	r := newTestRecorder(t)

	err := r.Record(context.Background(), Entry{
		Email:         "unknown-user@example.com",
		Successful:    false,
		Method:        models.MethodCredentials,
		FailureReason: "Unknown email",
	})
	require.NoError(t, err)

	events, _, err := r.List(context.Background(), ListOptions{
		Filters: Filters{Email: "unknown-user@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Nil(t, events[0].UserID)
}

func TestListFilters(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	userID := seedEventUser(t, r, "filter-owner@example.com")

	require.NoError(t, r.Record(ctx, Entry{
		UserID: &userID, Email: "filter@example.com",
		Successful: true, Method: models.MethodCredentials,
	}))
	require.NoError(t, r.Record(ctx, Entry{
		UserID: &userID, Email: "filter@example.com",
		Successful: true, Method: models.MethodGoogle,
	}))
	require.NoError(t, r.Record(ctx, Entry{
		Email:      "filter@example.com",
		Successful: false, Method: models.MethodCredentials, FailureReason: "Invalid password",
	}))

	byMethod, total, err := r.List(ctx, ListOptions{
		Filters: Filters{Email: "filter@example.com", Method: models.MethodGoogle},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, byMethod, 1)

	failed := false
	byOutcome, total, err := r.List(ctx, ListOptions{
		Filters: Filters{Email: "filter@example.com", Successful: &failed},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Invalid password", byOutcome[0].FailureReason)

	byUser, total, err := r.List(ctx, ListOptions{
		Filters: Filters{UserID: userID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, byUser, 2)
}

func TestListPagination(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Record(ctx, Entry{
			Email: "paging@example.com", Successful: true, Method: models.MethodCredentials,
		}))
	}

	page1, total, err := r.List(ctx, ListOptions{
		Page: 1, PageSize: 2,
		Filters: Filters{Email: "paging@example.com"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page1, 2)

	page3, _, err := r.List(ctx, ListOptions{
		Page: 3, PageSize: 2,
		Filters: Filters{Email: "paging@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, page3, 1)
}

func TestCleanupOlderThan(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Entry{
		Email: "retention@example.com", Successful: true, Method: models.MethodCredentials,
	}))

	// Backdate the event past the retention window.
	old := time.Now().AddDate(0, 0, -120)
	require.NoError(t, r.db.Model(&models.LoginEvent{}).
		Where("email = ?", "retention@example.com").
		Update("created_at", old).Error)

	removed, err := r.CleanupOlderThan(ctx, 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, total, err := r.List(ctx, ListOptions{Filters: Filters{Email: "retention@example.com"}})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestCleanupRejectsNonPositiveRetention(t *testing.T) {
	r := newTestRecorder(t)

	_, err := r.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
