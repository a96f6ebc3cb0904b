package models

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username" validate:"required,max=150"`
	PasswordHash string `json:"-" validate:"required"`
	IsAdmin      bool   `json:"is_admin"`
}
