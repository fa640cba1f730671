package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/sledljivost/internal/db"
)

func TestTokenRevocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		revoke []string
		check  string
		want   bool
	}{
		{"never revoked", nil, "jti-a", false},
		{"revoked", []string{"jti-b"}, "jti-b", true},
		{"revoked twice", []string{"jti-c", "jti-c"}, "jti-c", true},
		{"other revoked", []string{"jti-d"}, "jti-e", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, jti := range tt.revoke {
				if err := RevokeToken(ctx, database, jti, exp); err != nil {
					t.Fatalf("RevokeToken(%s): %v", jti, err)
				}
			}
			got, err := IsTokenRevoked(ctx, database, tt.check)
			if err != nil {
				t.Fatalf("IsTokenRevoked: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsTokenRevoked(%s) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestPurgeRevokedTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if err := RevokeToken(ctx, database, "expired", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := RevokeToken(ctx, database, "live", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, err := PurgeRevokedTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PurgeRevokedTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged revocation, got %d", n)
	}

	if revoked, _ := IsTokenRevoked(ctx, database, "live"); !revoked {
		t.Error("expected unexpired revocation to survive the purge")
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "expired"); revoked {
		t.Error("expected expired revocation to be purged")
	}
}
