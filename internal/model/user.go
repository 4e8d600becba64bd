package model

import "time"

// Role - роль пользователя.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User - техник или администратор мастерской.
type User struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"-" bson:"_id"`
	Username     string    `gorm:"not null;uniqueIndex" json:"username" bson:"username"`
	PasswordHash string    `gorm:"not null" json:"-" bson:"passwordHash"`
	DisplayName  string    `gorm:"not null" json:"displayName" bson:"displayName"`
	Role         Role      `gorm:"not null" json:"role" bson:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"-" bson:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-" bson:"updatedAt"`
}
