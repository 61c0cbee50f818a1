package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Handle      string    `gorm:"type:varchar(32);not null;uniqueIndex:chirp_users_ux1;column:handle"`
	DisplayName string    `gorm:"type:varchar(50);not null;default:'';column:display_name"`
	Bio         string    `gorm:"type:varchar(280);not null;default:'';column:bio"`
	ProfilePic  string    `gorm:"type:varchar(1024);not null;default:'';column:profile_pic"`
	IsVerified  bool      `gorm:"not null;default:false;column:is_verified"`
	IsPrivate   bool      `gorm:"not null;default:false;column:is_private"`
	State       int16     `gorm:"type:smallint;not null;default:0;column:state"`
	Role        int16     `gorm:"type:smallint;not null;default:0;column:role"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "chirp_users"
}

// Account state constants
const (
	UserStateActive    int16 = 0
	UserStateSuspended int16 = 1
	UserStateBanned    int16 = 2
)

// Role constants
const (
	RoleUser      int16 = 0
	RoleModerator int16 = 1
	RoleAdmin     int16 = 2
)

// IsModerator reports whether the user holds moderator privileges or higher.
func (u *User) IsModerator() bool {
	return u.Role >= RoleModerator
}

// IsAdmin reports whether the user holds admin privileges.
func (u *User) IsAdmin() bool {
	return u.Role >= RoleAdmin
}
