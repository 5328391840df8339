package auth

import (
	"testing"
	"time"
)

func TestIdentityCarriesProviderClaims(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	id := Identity{
		RemoteID:   "sub-1",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Email:      "ada@example.com",
		ExpiresAt:  expiry,
	}

	if id.RemoteID != "sub-1" {
		t.Fatalf("RemoteID = %q, want sub-1", id.RemoteID)
	}
	if id.Email != "ada@example.com" || id.GivenName != "Ada" || id.FamilyName != "Lovelace" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.ExpiresAt.Equal(expiry) {
		t.Fatalf("ExpiresAt = %v, want %v", id.ExpiresAt, expiry)
	}
}
