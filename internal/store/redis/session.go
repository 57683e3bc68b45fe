package redis

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// SessionRecord is what a viewer session stores server-side
type SessionRecord struct {
	Token     string          `json:"token"`
	User      domain.UserInfo `json:"user"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveSession stores a session record for ttl
func (s *Store) SaveSession(ctx context.Context, sid string, rec SessionRecord, ttl time.Duration) error {
	return s.SetJSON(ctx, SessionKey(sid), rec, ttl)
}

// GetSession loads a session record, reporting false when it does not exist
func (s *Store) GetSession(ctx context.Context, sid string) (SessionRecord, bool, error) {
	var rec SessionRecord
	ok, err := s.GetJSON(ctx, SessionKey(sid), &rec)
	return rec, ok, err
}

// DeleteSession removes a session record
func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	return s.Delete(ctx, SessionKey(sid))
}
