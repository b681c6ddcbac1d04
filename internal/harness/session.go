package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/pagecheck/internal/driver"
)

// IDGenerator produces session and run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DriverFactory opens a fresh driver with its own cookie jar or browser
// context.
type DriverFactory func(ctx context.Context) (driver.Driver, error)

// Session is one isolated browsing session. Login state lives in the
// session's driver, so scenarios on different sessions never see each
// other's cookies.
type Session struct {
	ID     string
	Driver driver.Driver
}

// NewSession opens a driver through factory and tags it with an id.
func NewSession(ctx context.Context, ids IDGenerator, factory DriverFactory) (*Session, error) {
	d, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &Session{ID: ids.Generate(), Driver: d}, nil
}

// Close releases the session's driver.
func (s *Session) Close() error {
	if s.Driver == nil {
		return nil
	}
	return s.Driver.Close()
}

// logger returns l annotated with the session id.
func (s *Session) logger(l *slog.Logger) *slog.Logger {
	return l.With("session", s.ID)
}
