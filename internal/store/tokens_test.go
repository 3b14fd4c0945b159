package store

import (
	"context"
	"testing"
	"time"

	"renttrack/internal/db"
)

func TestRevokeToken(t *testing.T) {
	s := New(db.NewTestDB(t), nil)
	ctx := context.Background()

	revoked, err := s.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected fresh JTI not to be revoked")
	}

	if err := s.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, _ = s.IsTokenRevoked(ctx, "jti-1")
	if !revoked {
		t.Error("expected JTI to be revoked")
	}

	// Revoking twice is fine.
	if err := s.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("RevokeToken twice: %v", err)
	}
}
