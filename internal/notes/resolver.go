package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

const maxNoteLength = 280

// Resolver manages community note proposals and the pending→approved
// transition. All rating writes go through a single row-locked transaction
// so concurrent raters near the threshold cannot double-approve or lose a
// count.
type Resolver struct {
	db     *gorm.DB
	notes  *db.NoteRepository
	posts  *db.PostRepository
	cfg    config.NotesConfig
	logger *zap.Logger
}

// NewResolver creates a new note resolver
func NewResolver(database *gorm.DB, cfg config.NotesConfig) *Resolver {
	repo := db.NewRepository(database)
	return &Resolver{
		db:     database,
		notes:  db.NewNoteRepository(repo),
		posts:  db.NewPostRepository(repo),
		cfg:    cfg,
		logger: logging.WithComponent("notes"),
	}
}

// RatingResult is the outcome of one rating write
type RatingResult struct {
	Note     *models.CommunityNote
	Approved bool // true when this rating flipped the note to approved
}

// Create proposes a pending note on a post. Authors cannot annotate their
// own posts.
func (r *Resolver) Create(ctx context.Context, author *models.User, postID int64, body string, sources []string, category string) (*models.CommunityNote, error) {
	if err := validateNote(body, sources, category); err != nil {
		return nil, err
	}

	post, err := r.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil || post.IsDeleted {
		return nil, fmt.Errorf("post %d: %w", postID, db.ErrNotFound)
	}
	if post.AuthorID == author.ID {
		return nil, fmt.Errorf("cannot annotate own post: %w", db.ErrInvalidState)
	}

	rawSources, marshalErr := json.Marshal(sources)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", marshalErr)
	}

	note := &models.CommunityNote{
		PostID:    postID,
		AuthorID:  author.ID,
		Body:      body,
		Sources:   string(rawSources),
		Category:  category,
		Status:    models.NoteStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	r.logger.Info("Community note proposed",
		zap.Int64("note_id", note.ID),
		zap.Int64("post_id", postID),
		zap.Int64("author_id", author.ID))
	return note, nil
}

// Rate records one voter's helpfulness rating. Each account rates a note at
// most once, raters cannot rate their own note, and only pending notes
// accept ratings. When the helpful count reaches the approval threshold the
// note flips to approved inside the same transaction.
func (r *Resolver) Rate(ctx context.Context, rater *models.User, noteID int64, helpful bool) (*RatingResult, error) {
	result := &RatingResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note models.CommunityNote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", noteID).
			First(&note).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("note %d: %w", noteID, db.ErrNotFound)
			}
			return fmt.Errorf("failed to lock note: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.NoteRating{}).
			Where("note_id = ? AND user_id = ?", noteID, rater.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check prior rating: %w", err)
		}
		if err := checkRatable(&note, rater.ID, existing > 0); err != nil {
			return err
		}

		rating := models.NoteRating{
			NoteID:    noteID,
			UserID:    rater.ID,
			Rating:    models.RatingNotHelpful,
			CreatedAt: time.Now().UTC(),
		}
		if helpful {
			rating.Rating = models.RatingHelpful
		}
		if err := tx.Create(&rating).Error; err != nil {
			return fmt.Errorf("failed to record rating: %w", err)
		}

		result.Approved = applyRating(&note, helpful, r.cfg.ApprovalThreshold)

		if err := tx.Save(&note).Error; err != nil {
			return fmt.Errorf("failed to update note counts: %w", err)
		}

		result.Note = &note
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Approved {
		r.logger.Info("Community note approved",
			zap.Int64("note_id", result.Note.ID),
			zap.Int64("post_id", result.Note.PostID),
			zap.Int64("helpful_count", result.Note.HelpfulCount))
	}
	return result, nil
}

// ApprovedForPost returns the approved notes on a post, most helpful first.
func (r *Resolver) ApprovedForPost(ctx context.Context, postID int64) ([]*models.CommunityNote, error) {
	approved, err := r.notes.ApprovedForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved notes: %w", err)
	}
	return approved, nil
}

// checkRatable returns the domain error preventing raterID from rating the
// note, if any. Only pending notes accept ratings, authors cannot rate
// their own note, and each account rates a note at most once.
func checkRatable(note *models.CommunityNote, raterID int64, alreadyRated bool) error {
	if note.Status != models.NoteStatusPending {
		return fmt.Errorf("note is %s: %w", models.NoteStatusName(note.Status), db.ErrInvalidState)
	}
	if note.AuthorID == raterID {
		return fmt.Errorf("cannot rate own note: %w", db.ErrInvalidState)
	}
	if alreadyRated {
		return fmt.Errorf("already rated: %w", db.ErrInvalidState)
	}
	return nil
}

// applyRating folds one new rating into the note's counters and advances
// the status machine. Returns true when this rating is the one that flips
// the note to approved.
func applyRating(note *models.CommunityNote, helpful bool, threshold int64) bool {
	if !helpful {
		note.NotHelpfulCount++
		return false
	}
	note.HelpfulCount++
	if note.Status == models.NoteStatusPending && note.HelpfulCount >= threshold {
		note.Status = models.NoteStatusApproved
		return true
	}
	return false
}

// validateNote checks the user-supplied note fields
func validateNote(body string, sources []string, category string) error {
	length := utf8.RuneCountInString(body)
	if length == 0 {
		return fmt.Errorf("note body is empty: %w", db.ErrInvalidState)
	}
	if length > maxNoteLength {
		return fmt.Errorf("note body exceeds %d characters: %w", maxNoteLength, db.ErrInvalidState)
	}
	if len(sources) == 0 {
		return fmt.Errorf("note requires at least one source: %w", db.ErrInvalidState)
	}
	valid := false
	for _, c := range models.ValidNoteCategories {
		if c == category {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown note category %q: %w", category, db.ErrInvalidState)
	}
	return nil
}
