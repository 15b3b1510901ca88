package database

import (
	"time"

	"github.com/lockblank/lockblank/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all journal operations for monitor sessions
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateSession inserts a new monitor session
func (r *Repository) CreateSession(session *models.MonitorSession) error {
	result := r.db.Create(session)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert monitor session")
	}
	return nil
}

// FinishSession stores the final counters and exit reason of a session
func (r *Repository) FinishSession(session *models.MonitorSession) error {
	result := r.db.Model(&models.MonitorSession{}).
		Where("session_id = ?", session.SessionID).
		Updates(map[string]any{
			"ended_at":     session.EndedAt,
			"devices":      session.Devices,
			"watchers":     session.Watchers,
			"exit_reason":  session.ExitReason,
			"blanks":       session.Blanks,
			"activity":     session.Activity,
			"longest_idle": session.LongestIdle,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to finish monitor session")
	}
	if result.RowsAffected == 0 {
		return errors.Errorf("monitor session %s not found", session.SessionID)
	}
	return nil
}

// GetSession retrieves a session by its session ID
func (r *Repository) GetSession(sessionID string) (*models.MonitorSession, error) {
	var session models.MonitorSession
	result := r.db.Where("session_id = ?", sessionID).First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get monitor session")
	}
	return &session, nil
}

// GetSessionsSince retrieves all sessions started since a given time
func (r *Repository) GetSessionsSince(since time.Time) ([]*models.MonitorSession, error) {
	var sessions []*models.MonitorSession
	result := r.db.Where("started_at >= ?", since).Order("started_at ASC").Find(&sessions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query monitor sessions")
	}

	return sessions, nil
}

// GetReasonCountsSince groups sessions since a given time by exit reason
func (r *Repository) GetReasonCountsSince(since time.Time) ([]models.ReasonCount, error) {
	var counts []models.ReasonCount

	result := r.db.Model(&models.MonitorSession{}).
		Select("exit_reason, COUNT(*) as count").
		Where("started_at >= ?", since).
		Group("exit_reason").
		Order("count DESC").
		Scan(&counts)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query exit reasons")
	}

	return counts, nil
}

// GetLatest retrieves the most recent session
func (r *Repository) GetLatest() (*models.MonitorSession, error) {
	var session models.MonitorSession
	result := r.db.Order("started_at DESC").First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest session")
	}
	return &session, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// CountErrorsSince counts error logs recorded since a given time
func (r *Repository) CountErrorsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.ErrorLog{}).Where("timestamp >= ?", since).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count error logs")
	}
	return count, nil
}

// DeleteOldSessions deletes sessions started before a given time (soft delete)
func (r *Repository) DeleteOldSessions(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&models.MonitorSession{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old sessions")
	}
	return result.RowsAffected, nil
}

// Clear removes all sessions and error logs from the database
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM monitor_sessions"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear monitor sessions")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
