package audit

import (
	"log"
	"os"
	"time"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Actions recorded in the log.
const (
	ActionBorrow        = "borrow"
	ActionReturn        = "return"
	ActionAddBook       = "add_book"
	ActionUpdateBook    = "update_book"
	ActionDeleteBook    = "delete_book"
	ActionCreateUser    = "create_user"
	ActionOverdueReport = "overdue_report"
	ActionArchiveLogs   = "archive_logs"
)

const maxDetailsLength = 1000

// ArchiveResult describes one archive run.
type ArchiveResult struct {
	Archived int    `json:"archived"`
	File     string `json:"file,omitempty"`
}

// Service provides high-level action logging.
type Service struct {
	repo *audit.Repository
	now  func() time.Time
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the clock used for timestamps and retention cutoffs.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Log records an action.
func (s *Service) Log(action, details string) error {
	return s.repo.LogEntry(&entities.LogEntry{
		Timestamp: s.now().UTC(),
		Action:    action,
		Details:   truncate(details, maxDetailsLength),
	})
}

// LogAsync records an action in the background (non-blocking).
func (s *Service) LogAsync(action, details string) {
	entry := &entities.LogEntry{
		Timestamp: s.now().UTC(),
		Action:    action,
		Details:   truncate(details, maxDetailsLength),
	}
	go func() {
		if err := s.repo.LogEntry(entry); err != nil {
			log.Printf("Failed to log %s action: %v", action, err)
		}
	}()
}

// Recent retrieves paginated log entries, newest first.
func (s *Service) Recent(limit, offset int) ([]entities.LogEntry, int64, error) {
	return s.repo.GetEntries("", limit, offset)
}

// RecentByAction retrieves paginated entries for a single action.
func (s *Service) RecentByAction(action string, limit, offset int) ([]entities.LogEntry, int64, error) {
	return s.repo.GetEntries(action, limit, offset)
}

// Archive moves entries older than retention into a compressed file in dir.
// No file is created when nothing is old enough.
func (s *Service) Archive(retention time.Duration, dir string) (*ArchiveResult, error) {
	now := s.now().UTC()
	cutoff := now.Add(-retention)
	archiver := NewArchiver(dir)

	result := &ArchiveResult{}
	n, err := s.repo.ArchiveOlderThan(cutoff, func(entries []entities.LogEntry) error {
		path, err := archiver.Write(entries, now)
		if err != nil {
			return err
		}
		result.File = path
		return nil
	})
	if err != nil {
		// The file was written inside the transaction; the entries are still
		// in the table, so drop the copy.
		if result.File != "" {
			if rmErr := os.Remove(result.File); rmErr != nil {
				log.Printf("Failed to remove archive %s after error: %v", result.File, rmErr)
			}
		}
		return nil, err
	}
	result.Archived = n

	if n > 0 {
		log.Printf("Archived %d log entries older than %s to %s", n, cutoff.Format(time.RFC3339), result.File)
	}
	return result, nil
}

// DeleteOlderThan removes entries older than retention without archiving.
func (s *Service) DeleteOlderThan(retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(s.now().Add(-retention))
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
