package models

import (
	"time"
)

// Follow represents a follow relationship
type Follow struct {
	FollowerID  int64     `gorm:"primaryKey;column:follower_id"`
	FollowingID int64     `gorm:"primaryKey;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *User `gorm:"foreignKey:FollowerID;references:ID"`
	Following *User `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "chirp_follows"
}

// Block represents a block relationship. Visibility suppression is
// symmetric regardless of which side created the row.
type Block struct {
	BlockerID int64     `gorm:"primaryKey;column:blocker_id"`
	BlockedID int64     `gorm:"primaryKey;column:blocked_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Blocker *User `gorm:"foreignKey:BlockerID;references:ID"`
	Blocked *User `gorm:"foreignKey:BlockedID;references:ID"`
}

// TableName specifies the table name for Block
func (Block) TableName() string {
	return "chirp_blocks"
}

// Mute represents a mute relationship. One-directional: only the muting
// user's view is affected.
type Mute struct {
	MuterID   int64     `gorm:"primaryKey;column:muter_id"`
	MutedID   int64     `gorm:"primaryKey;column:muted_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Muter *User `gorm:"foreignKey:MuterID;references:ID"`
	Muted *User `gorm:"foreignKey:MutedID;references:ID"`
}

// TableName specifies the table name for Mute
func (Mute) TableName() string {
	return "chirp_mutes"
}
