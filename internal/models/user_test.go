package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUserIsAdmin(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleAdmin:    true,
		"":           false,
		"editor":     false,
		"ADMIN":      false,
		"superadmin": false,
	} {
		if got := (&User{Role: role}).IsAdmin(); got != want {
			t.Errorf("User{Role: %q}.IsAdmin() = %v, want %v", role, got, want)
		}
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	u := User{Email: "admin@fanhub.local", PasswordHash: "$2a$10$secret", Role: RoleAdmin}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "secret") || strings.Contains(string(data), "password") {
		t.Errorf("serialized user leaks the hash: %s", data)
	}
}
