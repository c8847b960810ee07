// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package auth

import (
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/logging"
)

// User is one configured account.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
}

func (u *User) Subject() *Subject {
	return &Subject{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Directory is the in-memory user list loaded from configuration. Logins
// match either the user ID or the email, case-insensitively.
type Directory struct {
	users map[string]*User
	// dummyHash keeps unknown-user lookups as slow as a real comparison.
	dummyHash []byte
}

// NewDirectory loads the bootstrap admin plus any configured users. Accounts
// without a password hash cannot log in and are skipped.
func NewDirectory(cfg *config.SecurityConfig) *Directory {
	d := &Directory{users: make(map[string]*User)}
	d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-dummy"), bcrypt.MinCost)

	all := append([]config.UserConfig{cfg.Admin}, cfg.Users...)
	for _, uc := range all {
		if uc.ID == "" || uc.PasswordHash == "" {
			continue
		}
		d.Add(&User{
			ID:           uc.ID,
			Name:         uc.Name,
			Email:        uc.Email,
			Role:         uc.Role,
			PasswordHash: uc.PasswordHash,
		})
	}
	logging.Debug().Int("users", d.Len()).Msg("User directory loaded")
	return d
}

// Add registers u under its ID and email.
func (d *Directory) Add(u *User) {
	d.users[strings.ToLower(u.ID)] = u
	if u.Email != "" {
		d.users[strings.ToLower(u.Email)] = u
	}
}

// Len counts distinct users.
func (d *Directory) Len() int {
	seen := make(map[string]struct{}, len(d.users))
	for _, u := range d.users {
		seen[u.ID] = struct{}{}
	}
	return len(seen)
}

// Members lists the distinct users whose role satisfies match, ordered by ID.
func (d *Directory) Members(match func(role string) bool) []*User {
	seen := make(map[string]bool)
	var out []*User
	for _, u := range d.users {
		if seen[u.ID] || !match(u.Role) {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a user by ID or email.
func (d *Directory) Lookup(login string) (*User, bool) {
	u, ok := d.users[strings.ToLower(strings.TrimSpace(login))]
	return u, ok
}

// Verify checks the password for login and returns the user on success.
// Unknown logins and wrong passwords both return ErrInvalidCredentials.
func (d *Directory) Verify(login, password string) (*User, error) {
	if login == "" || password == "" {
		return nil, ErrNoCredentials
	}
	u, ok := d.Lookup(login)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword is used by the CLI to produce config-ready hashes.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
