package models

import (
	"database/sql"
	"time"
)

// Post represents a chirp, a reply, a quote, or a repost wrapper.
// A repost wrapper has RepostID set and an empty body; it carries its own
// timestamp and author and displays the referenced post's content.
type Post struct {
	ID          int64         `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID    int64         `gorm:"not null;index;column:author_id"`
	Body        string        `gorm:"type:varchar(500);not null;default:'';column:body"`
	Media       string        `gorm:"type:text;not null;default:'[]';column:media"`
	ParentID    sql.NullInt64 `gorm:"column:parent_id"`
	QuoteID     sql.NullInt64 `gorm:"column:quote_id"`
	RepostID    sql.NullInt64 `gorm:"column:repost_id"`
	IsEdited    bool          `gorm:"not null;default:false;column:is_edited"`
	EditHistory string        `gorm:"type:text;not null;default:'[]';column:edit_history"`
	EditedAt    sql.NullTime  `gorm:"column:edited_at"`
	IsPinned    bool          `gorm:"not null;default:false;column:is_pinned"`
	IsDeleted   bool          `gorm:"not null;default:false;column:is_deleted"`
	CreatedAt   time.Time     `gorm:"not null;index;column:created_at"`

	// Relationships
	Author   *User `gorm:"foreignKey:AuthorID;references:ID"`
	Parent   *Post `gorm:"foreignKey:ParentID;references:ID"`
	Quoted   *Post `gorm:"foreignKey:QuoteID;references:ID"`
	RepostOf *Post `gorm:"foreignKey:RepostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "chirp_posts"
}

// IsRepost reports whether the post is a repost wrapper.
func (p *Post) IsRepost() bool {
	return p.RepostID.Valid
}

// IsReply reports whether the post is a reply.
func (p *Post) IsReply() bool {
	return p.ParentID.Valid
}

// Like represents a like; existence of the row means the like is active
type Like struct {
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	PostID    int64     `gorm:"primaryKey;column:post_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;references:ID"`
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "chirp_likes"
}

// Bookmark represents a bookmark
type Bookmark struct {
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	PostID    int64     `gorm:"primaryKey;column:post_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;references:ID"`
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Bookmark
func (Bookmark) TableName() string {
	return "chirp_bookmarks"
}

// Hashtag represents a hashtag extracted from post bodies
type Hashtag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Tag       string    `gorm:"type:varchar(64);not null;uniqueIndex:chirp_hashtags_ux1;column:tag"`
	PostCount int64     `gorm:"not null;default:0;column:post_count"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Hashtag
func (Hashtag) TableName() string {
	return "chirp_hashtags"
}

// PostHashtag represents a post-to-hashtag mapping
type PostHashtag struct {
	PostID    int64 `gorm:"primaryKey;column:post_id"`
	HashtagID int64 `gorm:"primaryKey;column:hashtag_id"`

	// Relationships
	Post    *Post    `gorm:"foreignKey:PostID;references:ID"`
	Hashtag *Hashtag `gorm:"foreignKey:HashtagID;references:ID"`
}

// TableName specifies the table name for PostHashtag
func (PostHashtag) TableName() string {
	return "chirp_post_hashtags"
}
