package models

import (
	"time"

	"gorm.io/gorm"
)

// Exit reasons recorded for a monitor session
const (
	ExitUnlocked       = "unlocked"
	ExitWatchersExited = "watchers-exited"
	ExitCanceled       = "canceled"
	ExitFailed         = "failed"
)

// MonitorSession is one run of the idle monitor, from startup to exit
type MonitorSession struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	SessionID      string         `gorm:"not null;uniqueIndex;size:36" json:"session_id"`
	StartedAt      time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	Devices        int            `gorm:"not null;default:0" json:"devices"`
	Watchers       int            `gorm:"not null;default:0" json:"watchers"` // Watchers that spawned successfully
	ExitReason     string         `gorm:"not null;default:''" json:"exit_reason"`
	Blanks         int            `gorm:"not null;default:0" json:"blanks"`       // Display force-off calls
	Activity       int64          `gorm:"not null;default:0" json:"activity"`     // Input events observed
	LongestIdle    int64          `gorm:"not null;default:0" json:"longest_idle"` // Seconds
	LockBackend    string         `gorm:"not null" json:"lock_backend"`
	DisplayBackend string         `gorm:"not null" json:"display_backend"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Duration returns how long the session ran, up to now if still open
func (s *MonitorSession) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

type ReasonCount struct {
	ExitReason string `json:"exit_reason"`
	Count      int    `json:"count"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period        ReportPeriod      `json:"period"`
	Sessions      []*MonitorSession `json:"sessions"`
	Reasons       []ReasonCount     `json:"reasons"`
	TotalSessions int               `json:"total_sessions"`
	TotalSeconds  int64             `json:"total_seconds"` // Time spent monitoring while locked
	TotalBlanks   int               `json:"total_blanks"`
	TotalActivity int64             `json:"total_activity"`
	Errors        int64             `json:"errors"`
	GeneratedAt   time.Time         `json:"generated_at"`
}
