package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/feed"
	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

// Service implements the post lifecycle: create, edit, soft delete, and the
// like/bookmark/repost toggles.
type Service struct {
	db     *gorm.DB
	posts  *db.PostRepository
	cfg    config.PostsConfig
	logger *zap.Logger
}

// NewService creates a new post service
func NewService(database *gorm.DB, cfg config.PostsConfig) *Service {
	repo := db.NewRepository(database)
	return &Service{
		db:     database,
		posts:  db.NewPostRepository(repo),
		cfg:    cfg,
		logger: logging.WithComponent("posts"),
	}
}

// CreateInput carries the fields of a new post
type CreateInput struct {
	Body     string
	Media    []string
	ParentID *int64 // reply target
	QuoteID  *int64 // quoted post
}

// ToggleResult is the outcome of a like/bookmark/repost toggle
type ToggleResult struct {
	Active bool  // state after the toggle
	Count  int64 // live count after the toggle
}

// editEntry is one snapshot in a post's edit history
type editEntry struct {
	Body     string    `json:"body"`
	EditedAt time.Time `json:"edited_at"`
}

// Create stores a new post, extracting hashtags from the body and keeping
// the hashtag usage counts in step.
func (s *Service) Create(ctx context.Context, author *models.User, in CreateInput) (*models.Post, error) {
	if err := s.validateBody(in.Body); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		if err := s.requireLive(ctx, *in.ParentID); err != nil {
			return nil, fmt.Errorf("reply target: %w", err)
		}
	}
	if in.QuoteID != nil {
		if err := s.requireLive(ctx, *in.QuoteID); err != nil {
			return nil, fmt.Errorf("quote target: %w", err)
		}
	}

	media := in.Media
	if media == nil {
		media = []string{}
	}
	rawMedia, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("failed to encode media: %w", err)
	}

	post := &models.Post{
		AuthorID:    author.ID,
		Body:        in.Body,
		Media:       string(rawMedia),
		EditHistory: "[]",
		CreatedAt:   time.Now().UTC(),
	}
	if in.ParentID != nil {
		post.ParentID = sql.NullInt64{Int64: *in.ParentID, Valid: true}
	}
	if in.QuoteID != nil {
		post.QuoteID = sql.NullInt64{Int64: *in.QuoteID, Valid: true}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		return s.linkHashtags(tx, post)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.Int64("author_id", author.ID),
		zap.Bool("is_reply", post.IsReply()))
	return post, nil
}

// Edit replaces a post's body inside the edit window, appending the prior
// body to the edit history. Only the author may edit; the window is
// measured from the original creation time, not the last edit.
func (s *Service) Edit(ctx context.Context, actor *models.User, postID int64, newBody string) (*models.Post, error) {
	if err := s.validateBody(newBody); err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil || post.IsDeleted {
		return nil, fmt.Errorf("post %d: %w", postID, db.ErrNotFound)
	}
	if post.AuthorID != actor.ID {
		return nil, fmt.Errorf("post %d belongs to another account: %w", postID, db.ErrForbidden)
	}
	if post.IsRepost() {
		return nil, fmt.Errorf("repost entries have no editable body: %w", db.ErrInvalidState)
	}

	now := time.Now().UTC()
	if !withinEditWindow(post.CreatedAt, now, s.cfg.EditWindow()) {
		return nil, fmt.Errorf("edit window closed: %w", db.ErrInvalidState)
	}

	history, err := appendEditHistory(post.EditHistory, post.Body, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update edit history: %w", err)
	}

	post.Body = newBody
	post.EditHistory = history
	post.IsEdited = true
	post.EditedAt = sql.NullTime{Time: now, Valid: true}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(post).Error; err != nil {
			return fmt.Errorf("failed to save post: %w", err)
		}
		// Re-link hashtags against the new body
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostHashtag{}).Error; err != nil {
			return fmt.Errorf("failed to clear hashtags: %w", err)
		}
		return s.linkHashtags(tx, post)
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// Delete soft-deletes a post. The author or an admin may delete; the row
// stays for reply threading but leaves every feed and count.
func (s *Service) Delete(ctx context.Context, actor *models.User, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil || post.IsDeleted {
		return fmt.Errorf("post %d: %w", postID, db.ErrNotFound)
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("post %d belongs to another account: %w", postID, db.ErrForbidden)
	}

	post.IsDeleted = true
	if err := s.posts.Update(ctx, post); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.logger.Info("Post deleted",
		zap.Int64("post_id", postID),
		zap.Int64("actor_id", actor.ID),
		zap.Bool("by_admin", actor.ID != post.AuthorID))
	return nil
}

// ToggleLike likes a post, or removes the like if one exists.
func (s *Service) ToggleLike(ctx context.Context, actor *models.User, postID int64) (*ToggleResult, error) {
	target, err := s.resolveTarget(ctx, postID)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", actor.ID, target.ID).
		Delete(&models.Like{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", res.Error)
	}

	active := false
	if res.RowsAffected == 0 {
		like := models.Like{UserID: actor.ID, PostID: target.ID, CreatedAt: time.Now().UTC()}
		if err := s.db.WithContext(ctx).Create(&like).Error; err != nil {
			return nil, fmt.Errorf("failed to toggle like: %w", err)
		}
		active = true
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", target.ID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	return &ToggleResult{Active: active, Count: count}, nil
}

// ToggleBookmark bookmarks a post, or removes the bookmark if one exists.
func (s *Service) ToggleBookmark(ctx context.Context, actor *models.User, postID int64) (*ToggleResult, error) {
	target, err := s.resolveTarget(ctx, postID)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", actor.ID, target.ID).
		Delete(&models.Bookmark{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to toggle bookmark: %w", res.Error)
	}

	active := false
	if res.RowsAffected == 0 {
		bookmark := models.Bookmark{UserID: actor.ID, PostID: target.ID, CreatedAt: time.Now().UTC()}
		if err := s.db.WithContext(ctx).Create(&bookmark).Error; err != nil {
			return nil, fmt.Errorf("failed to toggle bookmark: %w", err)
		}
		active = true
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("post_id = ?", target.ID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return &ToggleResult{Active: active, Count: count}, nil
}

// ToggleRepost creates a repost wrapper for a post, or soft-deletes the
// actor's existing wrapper. Reposting a wrapper targets its original.
func (s *Service) ToggleRepost(ctx context.Context, actor *models.User, postID int64) (*ToggleResult, error) {
	target, err := s.resolveTarget(ctx, postID)
	if err != nil {
		return nil, err
	}

	result := &ToggleResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Post
		err := tx.Where("author_id = ? AND repost_id = ? AND is_deleted = ?", actor.ID, target.ID, false).
			First(&existing).Error
		switch {
		case err == nil:
			existing.IsDeleted = true
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to remove repost: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			wrapper := models.Post{
				AuthorID:    actor.ID,
				Body:        "",
				Media:       "[]",
				EditHistory: "[]",
				RepostID:    sql.NullInt64{Int64: target.ID, Valid: true},
				CreatedAt:   time.Now().UTC(),
			}
			if err := tx.Create(&wrapper).Error; err != nil {
				return fmt.Errorf("failed to create repost: %w", err)
			}
			result.Active = true
		default:
			return fmt.Errorf("failed to look up repost: %w", err)
		}

		return tx.Model(&models.Post{}).
			Where("repost_id = ? AND is_deleted = ?", target.ID, false).
			Count(&result.Count).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TogglePin pins a post to the top of its author's profile, or unpins it
// if already pinned. An account has at most one pinned post, so pinning
// displaces any prior pin in the same transaction.
func (s *Service) TogglePin(ctx context.Context, actor *models.User, postID int64) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("failed to load post: %w", err)
	}
	if err := checkPinnable(actor, post); err != nil {
		return false, err
	}

	pinned := !post.IsPinned
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pinned {
			if err := tx.Model(&models.Post{}).
				Where("author_id = ? AND is_pinned = ?", actor.ID, true).
				UpdateColumn("is_pinned", false).Error; err != nil {
				return fmt.Errorf("failed to displace prior pin: %w", err)
			}
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			UpdateColumn("is_pinned", pinned).Error
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("Pin toggled",
		zap.Int64("post_id", postID),
		zap.Int64("author_id", actor.ID),
		zap.Bool("pinned", pinned))
	return pinned, nil
}

// checkPinnable returns the domain error preventing actor from pinning the
// post, if any. Only an author's own live, original posts can be pinned;
// repost wrappers carry no body to surface.
func checkPinnable(actor *models.User, post *models.Post) error {
	if post == nil || post.IsDeleted {
		return fmt.Errorf("post not found: %w", db.ErrNotFound)
	}
	if post.AuthorID != actor.ID {
		return fmt.Errorf("post %d belongs to another account: %w", post.ID, db.ErrForbidden)
	}
	if post.IsRepost() {
		return fmt.Errorf("repost entries cannot be pinned: %w", db.ErrInvalidState)
	}
	return nil
}

// resolveTarget loads the post an interaction applies to. Interactions on a
// repost wrapper fall through to the referenced original.
func (s *Service) resolveTarget(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil || post.IsDeleted {
		return nil, fmt.Errorf("post %d: %w", postID, db.ErrNotFound)
	}
	if post.IsRepost() {
		original, err := s.posts.GetByID(ctx, post.RepostID.Int64)
		if err != nil {
			return nil, fmt.Errorf("failed to load reposted original: %w", err)
		}
		if original == nil || original.IsDeleted {
			return nil, fmt.Errorf("post %d: %w", post.RepostID.Int64, db.ErrNotFound)
		}
		return original, nil
	}
	return post, nil
}

// requireLive returns ErrNotFound unless the post exists and is not deleted
func (s *Service) requireLive(ctx context.Context, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil || post.IsDeleted {
		return fmt.Errorf("post %d: %w", postID, db.ErrNotFound)
	}
	return nil
}

// linkHashtags upserts the hashtags found in the post body and links them
// to the post. Runs inside the caller's transaction.
func (s *Service) linkHashtags(tx *gorm.DB, post *models.Post) error {
	tags := feed.ExtractHashtags(post.Body)
	for _, tag := range tags {
		hashtag := models.Hashtag{Tag: tag, CreatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tag"}},
			DoNothing: true,
		}).Create(&hashtag).Error; err != nil {
			return fmt.Errorf("failed to upsert hashtag %q: %w", tag, err)
		}
		if hashtag.ID == 0 {
			if err := tx.Where("tag = ?", tag).First(&hashtag).Error; err != nil {
				return fmt.Errorf("failed to load hashtag %q: %w", tag, err)
			}
		}

		link := models.PostHashtag{PostID: post.ID, HashtagID: hashtag.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link hashtag %q: %w", tag, err)
		}
		if err := tx.Model(&models.Hashtag{}).
			Where("id = ?", hashtag.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to bump hashtag count: %w", err)
		}
	}
	return nil
}

func (s *Service) validateBody(body string) error {
	length := utf8.RuneCountInString(body)
	if length == 0 {
		return fmt.Errorf("post body is empty: %w", db.ErrInvalidState)
	}
	if length > s.cfg.MaxBodyLength {
		return fmt.Errorf("post body exceeds %d characters: %w", s.cfg.MaxBodyLength, db.ErrInvalidState)
	}
	return nil
}

// withinEditWindow reports whether an edit at now is allowed for a post
// created at createdAt.
func withinEditWindow(createdAt, now time.Time, window time.Duration) bool {
	return !now.After(createdAt.Add(window))
}

// appendEditHistory appends the prior body to the JSON edit history
func appendEditHistory(history, prevBody string, editedAt time.Time) (string, error) {
	var entries []editEntry
	if history != "" {
		if err := json.Unmarshal([]byte(history), &entries); err != nil {
			return "", err
		}
	}
	entries = append(entries, editEntry{Body: prevBody, EditedAt: editedAt})
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
