package database

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lockblank/lockblank/internal/models"
)

// Journal records one monitor session and the errors raised during it.
// It is write-only from the monitor's point of view.
type Journal struct {
	repo    *Repository
	session *models.MonitorSession
}

// Begin opens a journal entry for a new session and assigns its ID
func (r *Repository) Begin(session *models.MonitorSession) (*Journal, error) {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	if err := r.CreateSession(session); err != nil {
		return nil, err
	}
	return &Journal{repo: r, session: session}, nil
}

// Session returns the journaled session
func (j *Journal) Session() *models.MonitorSession {
	return j.session
}

// RecordError stores a non-fatal error. Failures to store are only logged.
func (j *Journal) RecordError(kind string, err error) {
	errorLog := &models.ErrorLog{
		SessionID: j.session.SessionID,
		Timestamp: time.Now(),
		Kind:      kind,
		ErrorMsg:  err.Error(),
	}

	if dbErr := j.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in journal: %v (original error: %v)", dbErr, err)
	}
}

// Finish closes the session with its exit reason and counters
func (j *Journal) Finish(reason string, blanks int, activity int64, longestIdle time.Duration) error {
	now := time.Now()
	j.session.EndedAt = &now
	j.session.ExitReason = reason
	j.session.Blanks = blanks
	j.session.Activity = activity
	j.session.LongestIdle = int64(longestIdle.Seconds())
	return j.repo.FinishSession(j.session)
}
