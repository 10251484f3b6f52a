package session

import "time"

// Session is one refresh-token lineage for a user. The session outlives any
// individual access token; refresh tokens reference it by ID and the session
// record in Redis is the single source of truth for whether the lineage is
// still alive.
type Session struct {
	ID        string
	UserID    string
	UserAgent string
	CreatedAt int64 // unix seconds
	ExpiresAt int64 // unix seconds
}

// ExpiresIn returns the remaining lifetime at now, which may be negative.
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
