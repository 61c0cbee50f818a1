package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByHandle retrieves a user by handle
func (r *UserRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves multiple users keyed by ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	result := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID, including soft-deleted rows. Callers that
// must not see deleted posts check IsDeleted themselves.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByIDs retrieves multiple posts keyed by ID
func (r *PostRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Post, error) {
	result := make(map[int64]*models.Post, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		result[p.ID] = p
	}
	return result, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Update updates a post
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// RelationRepository provides social-graph database operations
type RelationRepository struct {
	*Repository
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(repo *Repository) *RelationRepository {
	return &RelationRepository{Repository: repo}
}

// FollowingIDs returns the IDs of every account the user follows
func (r *RelationRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// BlockRelatedIDs returns the IDs of every account the user has a block
// relation with, in either direction.
func (r *RelationRepository) BlockRelatedIDs(ctx context.Context, userID int64) ([]int64, error) {
	var blocks []models.Block
	if err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

// MutedIDs returns the IDs of every account the user mutes
func (r *RelationRepository) MutedIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Mute{}).
		Where("muter_id = ?", userID).
		Pluck("muted_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// NoteRepository provides community-note database operations
type NoteRepository struct {
	*Repository
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(repo *Repository) *NoteRepository {
	return &NoteRepository{Repository: repo}
}

// Create creates a new community note
func (r *NoteRepository) Create(ctx context.Context, note *models.CommunityNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// ApprovedForPost returns the approved notes on a post, most helpful first
func (r *NoteRepository) ApprovedForPost(ctx context.Context, postID int64) ([]*models.CommunityNote, error) {
	var approved []*models.CommunityNote
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.NoteStatusApproved).
		Order("helpful_count DESC, id ASC").
		Find(&approved).Error; err != nil {
		return nil, err
	}
	return approved, nil
}
