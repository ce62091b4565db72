// Package account stores verified accounts and serves profile lookups.
package account

import (
	"regexp"
	"strings"
	"time"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Role is the authorization role carried by an account and its tokens.
type Role string

// Roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Status is the lifecycle state of an account.
type Status string

// Statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBlocked  Status = "blocked"
)

// Account is a verified user. Only the password hash is ever stored.
type Account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         Role
	Status       Status
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Profile is the public view of an account.
type Profile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Profile strips the credential hash.
func (a Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		Role:        a.Role,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// IsEmail reports whether a login identifier names an email rather than a phone.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// NormalizePhone returns phone in E.164 form. Separators are dropped and a
// missing leading plus is added, so "+1 555-123-4567" and "15551234567" name
// the same number. ok is false when the result is not a valid E.164 number.
func NormalizePhone(phone string) (normalized string, ok bool) {
	normalized = phoneSeparators.Replace(strings.TrimSpace(phone))
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	if !e164Pattern.MatchString(normalized) {
		return "", false
	}
	return normalized, true
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
