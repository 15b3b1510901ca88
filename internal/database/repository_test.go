package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lockblank/lockblank/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	return NewRepository(db)
}

func TestJournalLifecycle(t *testing.T) {
	repo := newTestRepository(t)

	journal, err := repo.Begin(&models.MonitorSession{
		Devices:        2,
		Watchers:       2,
		LockBackend:    "pgrep",
		DisplayBackend: "xset",
	})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	sessionID := journal.Session().SessionID
	if len(sessionID) != 36 {
		t.Errorf("SessionID = %q, want a UUID", sessionID)
	}

	journal.RecordError("query", errors.New("pgrep: exit status 3"))

	if err := journal.Finish(models.ExitUnlocked, 4, 17, 320*time.Second); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ExitReason != models.ExitUnlocked {
		t.Errorf("ExitReason = %q, want %q", got.ExitReason, models.ExitUnlocked)
	}
	if got.Blanks != 4 || got.Activity != 17 || got.LongestIdle != 320 {
		t.Errorf("counters = %d/%d/%d, want 4/17/320", got.Blanks, got.Activity, got.LongestIdle)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt = nil after Finish")
	}

	errCount, err := repo.CountErrorsSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountErrorsSince() error = %v", err)
	}
	if errCount != 1 {
		t.Errorf("CountErrorsSince() = %d, want 1", errCount)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetSession("missing")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetSession() error = %v, want ErrRecordNotFound", err)
	}
}

func TestFinishUnknownSession(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.FinishSession(&models.MonitorSession{SessionID: "missing"})
	if err == nil {
		t.Error("FinishSession() error = nil, want not found")
	}
}

func TestSessionsSinceAndReasons(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	sessions := []struct {
		started time.Time
		reason  string
	}{
		{now.Add(-48 * time.Hour), models.ExitUnlocked},
		{now.Add(-2 * time.Hour), models.ExitUnlocked},
		{now.Add(-1 * time.Hour), models.ExitWatchersExited},
		{now.Add(-30 * time.Minute), models.ExitUnlocked},
	}
	for _, s := range sessions {
		j, err := repo.Begin(&models.MonitorSession{StartedAt: s.started, LockBackend: "pgrep", DisplayBackend: "xset"})
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if err := j.Finish(s.reason, 0, 0, 0); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
	}

	since := now.Add(-24 * time.Hour)
	got, err := repo.GetSessionsSince(since)
	if err != nil {
		t.Fatalf("GetSessionsSince() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetSessionsSince() returned %d sessions, want 3", len(got))
	}
	if !got[0].StartedAt.Before(got[2].StartedAt) {
		t.Error("sessions not ordered by start time")
	}

	reasons, err := repo.GetReasonCountsSince(since)
	if err != nil {
		t.Fatalf("GetReasonCountsSince() error = %v", err)
	}
	if len(reasons) != 2 || reasons[0].ExitReason != models.ExitUnlocked || reasons[0].Count != 2 {
		t.Errorf("GetReasonCountsSince() = %+v, want unlocked=2 first", reasons)
	}

	latest, err := repo.GetLatest()
	if err != nil || latest == nil {
		t.Fatalf("GetLatest() = %v, %v", latest, err)
	}
	if latest.ExitReason != models.ExitUnlocked {
		t.Errorf("latest ExitReason = %q, want %q", latest.ExitReason, models.ExitUnlocked)
	}

	deleted, err := repo.DeleteOldSessions(since)
	if err != nil || deleted != 1 {
		t.Errorf("DeleteOldSessions() = %d, %v; want 1, nil", deleted, err)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	latest, err = repo.GetLatest()
	if err != nil || latest != nil {
		t.Errorf("GetLatest() after Clear = %v, %v; want nil, nil", latest, err)
	}
}
