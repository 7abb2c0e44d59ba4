package common

import (
	"fmt"
	"strings"
)

// Role is supplied by the identity provider and never stored on an Item.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleManager        Role = "MANAGER"
	RoleContentCreator Role = "CONTENT_CREATOR"
	RoleUser           Role = "USER"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleContentCreator, RoleUser:
		return true
	}
	return false
}

// IsPrivileged is true for the editorial roles that own approval decisions.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// ParseRole accepts the canonical names case-insensitively, with "-" or " " for "_".
func ParseRole(s string) (Role, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	r := Role(norm)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
