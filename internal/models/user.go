package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей платформы.
const (
	RoleClient = "client"
	RoleMaster = "master"
	RoleAdmin  = "admin"
)

// ValidRoles список допустимых ролей.
var ValidRoles = map[string]struct{}{
	RoleClient: {},
	RoleMaster: {},
	RoleAdmin:  {},
}

// User описывает пользователя платформы: клиента, мастера или администратора.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	City         *string    `db:"city" json:"city,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}
