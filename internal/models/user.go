package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role is a coarse permission level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Email       string    `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Password    string    `json:"-"`                        // Store hashed password, ignore for JSON serialization
	FirebaseUID string    `json:"firebase_uid,omitempty" gorm:"index"`
	Role        Role      `json:"role" gorm:"size:20;index;default:employee"`
	IsActive    bool      `json:"is_active" gorm:"index"`
	FCMToken    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserCompact is the public actor shape attached to notifications.
type UserCompact struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Team groups users; a team may belong to a department.
type Team struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	DepartmentID *uint     `json:"department_id" gorm:"index"`
	Members      []User    `json:"members,omitempty" gorm:"many2many:team_members"`
	CreatedAt    time.Time `json:"created_at"`
}

// Department groups teams.
type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Teams     []Team    `json:"teams,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type DeviceTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
