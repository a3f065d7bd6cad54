package models

// User is an account allowed through the browser-facing auth gate.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
