// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity record. Inactive users are invisible to every lookup.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	PasswordDigest string     `json:"-"`
	DisplayName    string     `json:"nome"`
	CreatedAt      time.Time  `json:"criado_em"`
	LastAccessAt   *time.Time `json:"ultimo_acesso"`
	Active         bool       `json:"-"`
}
