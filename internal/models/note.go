package models

import (
	"time"
)

// CommunityNote represents a crowd-proposed annotation on a post.
// HelpfulCount mirrors the number of helpful NoteRating rows; it is updated
// inside the same transaction as the rating insert so the two never diverge.
type CommunityNote struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID          int64     `gorm:"not null;index;column:post_id"`
	AuthorID        int64     `gorm:"not null;column:author_id"`
	Body            string    `gorm:"type:varchar(280);not null;column:body"`
	Sources         string    `gorm:"type:text;not null;default:'[]';column:sources"`
	Category        string    `gorm:"type:varchar(32);not null;default:'missing_context';column:category"`
	Status          int16     `gorm:"type:smallint;not null;default:1;column:status"`
	HelpfulCount    int64     `gorm:"not null;default:0;column:helpful_count"`
	NotHelpfulCount int64     `gorm:"not null;default:0;column:not_helpful_count"`
	CreatedAt       time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post   *Post `gorm:"foreignKey:PostID;references:ID"`
	Author *User `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for CommunityNote
func (CommunityNote) TableName() string {
	return "chirp_community_notes"
}

// Note status constants. Pending transitions to approved exactly once when
// the helpful threshold is reached; approved and rejected are terminal.
const (
	NoteStatusPending  int16 = 1
	NoteStatusApproved int16 = 2
	NoteStatusRejected int16 = 3
)

// NoteStatusName returns the wire name for a note status.
func NoteStatusName(status int16) string {
	switch status {
	case NoteStatusPending:
		return "pending"
	case NoteStatusApproved:
		return "approved"
	case NoteStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Note category constants
var ValidNoteCategories = []string{"misleading", "missing_context", "satire", "disputed", "other"}

// NoteRating represents one voter's helpfulness rating of a note
type NoteRating struct {
	NoteID    int64     `gorm:"primaryKey;column:note_id"`
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	Rating    int16     `gorm:"type:smallint;not null;column:rating"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Note *CommunityNote `gorm:"foreignKey:NoteID;references:ID"`
	User *User          `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for NoteRating
func (NoteRating) TableName() string {
	return "chirp_note_ratings"
}

// Rating value constants
const (
	RatingHelpful    int16 = 1
	RatingNotHelpful int16 = 2
)
