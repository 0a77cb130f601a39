package auth

import (
	"context"
	"testing"
	"time"
)

func TestIdentity_HasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		role  string
		want  bool
	}{
		{"read has read", []string{RoleRead}, RoleRead, true},
		{"read lacks admin", []string{RoleRead}, RoleAdmin, false},
		{"admin implies read", []string{RoleAdmin}, RoleRead, true},
		{"admin has admin", []string{RoleAdmin}, RoleAdmin, true},
		{"unrelated", []string{"billing"}, RoleRead, false},
		{"none", nil, RoleRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{Roles: tt.roles}
			if got := id.HasRole(tt.role); got != tt.want {
				t.Errorf("HasRole(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}

	var nilID *Identity
	if nilID.HasRole(RoleRead) {
		t.Error("nil identity has no roles")
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	now := testEpoch
	tests := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"never", time.Time{}, false},
		{"future", now.Add(time.Second), false},
		{"past", now.Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ExpiresAt: tt.exp}
			if got := id.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Fatal("empty context should carry no identity")
	}

	id := &Identity{Principal: "ops"}
	ctx = WithIdentity(ctx, id)
	if IdentityFromContext(ctx) != id {
		t.Error("IdentityFromContext() did not return the attached identity")
	}
	if got := PrincipalFromContext(ctx); got != "ops" {
		t.Errorf("PrincipalFromContext() = %q, want ops", got)
	}
}
