package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/config"
)

// Search result type selectors
const (
	SearchPosts    = "posts"
	SearchUsers    = "users"
	SearchHashtags = "hashtags"
	SearchAll      = "all"
)

// SearchResults holds the per-type result sets of one search request.
// Only the requested types are populated.
type SearchResults struct {
	Posts    []*PostView    `json:"posts,omitempty"`
	Users    []*models.User `json:"users,omitempty"`
	Hashtags []TagCount     `json:"hashtags,omitempty"`
}

// Searcher runs substring search over posts, users and hashtags. Results
// go through the same visibility filter as the feeds; search is not a side
// channel around blocks or private accounts.
type Searcher struct {
	db        *gorm.DB
	cfg       config.FeedConfig
	snapshots *SnapshotLoader
	annotator *Annotator
}

// NewSearcher creates a new searcher
func NewSearcher(database *gorm.DB, cfg config.FeedConfig) *Searcher {
	return &Searcher{
		db:        database,
		cfg:       cfg,
		snapshots: NewSnapshotLoader(database),
		annotator: NewAnnotator(database),
	}
}

// escapeLike neutralizes LIKE metacharacters in user-supplied query text so
// "50%" matches the literal string rather than everything.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Search runs a query against the requested result type. Unknown types fall
// back to posts. Viewer may be nil.
func (s *Searcher) Search(ctx context.Context, viewer *models.User, query, searchType string) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	results := &SearchResults{}
	if query == "" {
		return results, nil
	}

	switch searchType {
	case SearchUsers:
		users, err := s.searchUsers(ctx, viewer, query)
		if err != nil {
			return nil, err
		}
		results.Users = users
	case SearchHashtags:
		tags, err := s.searchHashtags(ctx, query)
		if err != nil {
			return nil, err
		}
		results.Hashtags = tags
	case SearchAll:
		posts, err := s.searchPosts(ctx, viewer, query)
		if err != nil {
			return nil, err
		}
		users, err := s.searchUsers(ctx, viewer, query)
		if err != nil {
			return nil, err
		}
		tags, err := s.searchHashtags(ctx, query)
		if err != nil {
			return nil, err
		}
		results.Posts = posts
		results.Users = users
		results.Hashtags = tags
	default:
		posts, err := s.searchPosts(ctx, viewer, query)
		if err != nil {
			return nil, err
		}
		results.Posts = posts
	}

	return results, nil
}

// PostsByTag returns the visible posts carrying a hashtag inside the tag
// window, newest first.
func (s *Searcher) PostsByTag(ctx context.Context, viewer *models.User, tag string, limit int) ([]*PostView, error) {
	if limit <= 0 || limit > s.cfg.MaxPageSize {
		limit = s.cfg.DefaultPageSize
	}
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return []*PostView{}, nil
	}

	since := time.Now().Add(-time.Duration(s.cfg.TagWindowHrs) * time.Hour)

	var posts []*models.Post
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Joins("INNER JOIN chirp_post_hashtags ph ON ph.post_id = chirp_posts.id").
		Joins("INNER JOIN chirp_hashtags h ON h.id = ph.hashtag_id").
		Where("h.tag = ?", tag).
		Where("chirp_posts.created_at > ? AND chirp_posts.is_deleted = ?", since, false).
		Order("chirp_posts.created_at DESC, chirp_posts.id DESC").
		Limit(limit * 2).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for tag: %w", err)
	}

	kept, err := s.filterForViewer(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return s.annotator.Annotate(ctx, viewer, kept)
}

func (s *Searcher) searchPosts(ctx context.Context, viewer *models.User, query string) ([]*PostView, error) {
	pattern := "%" + escapeLike(query) + "%"

	var posts []*models.Post
	err := s.db.WithContext(ctx).
		Where("body ILIKE ? AND is_deleted = ?", pattern, false).
		Order("created_at DESC, id DESC").
		Limit(s.cfg.SearchLimit * 2).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}

	kept, err := s.filterForViewer(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}
	if len(kept) > s.cfg.SearchLimit {
		kept = kept[:s.cfg.SearchLimit]
	}
	return s.annotator.Annotate(ctx, viewer, kept)
}

func (s *Searcher) searchUsers(ctx context.Context, viewer *models.User, query string) ([]*models.User, error) {
	pattern := "%" + escapeLike(query) + "%"

	q := s.db.WithContext(ctx).
		Where("handle ILIKE ? OR display_name ILIKE ?", pattern, pattern)
	// Suspended and banned accounts stay out of search for everyone but
	// admins.
	if viewer == nil || !viewer.IsAdmin() {
		q = q.Where("state = ?", models.UserStateActive)
	}

	var users []*models.User
	if err := q.
		Order("handle ASC").
		Limit(s.cfg.SearchLimit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func (s *Searcher) searchHashtags(ctx context.Context, query string) ([]TagCount, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimPrefix(query, "#"))) + "%"

	var tags []TagCount
	err := s.db.WithContext(ctx).
		Table("chirp_hashtags h").
		Select("h.tag AS tag, COUNT(ph.post_id) AS count, COALESCE(MAX(p.created_at), to_timestamp(0)) AS last_used").
		Joins("LEFT JOIN chirp_post_hashtags ph ON ph.hashtag_id = h.id").
		Joins("LEFT JOIN chirp_posts p ON p.id = ph.post_id AND p.is_deleted = false").
		Where("h.tag LIKE ?", pattern).
		Group("h.tag").
		Order("count DESC, h.tag ASC").
		Limit(s.cfg.SearchLimit).
		Scan(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search hashtags: %w", err)
	}
	return tags, nil
}

func (s *Searcher) filterForViewer(ctx context.Context, viewer *models.User, posts []*models.Post) ([]*models.Post, error) {
	snap := EmptySnapshot()
	if viewer != nil {
		var err error
		if snap, err = s.snapshots.Load(ctx, viewer.ID); err != nil {
			return nil, fmt.Errorf("failed to load relation snapshot: %w", err)
		}
	}
	authors, err := loadAuthors(ctx, s.db, posts)
	if err != nil {
		return nil, err
	}
	return FilterVisible(viewer, snap, posts, authors), nil
}
