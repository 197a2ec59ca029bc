// Package models defines the relay's persisted records.
package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}
