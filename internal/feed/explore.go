package feed

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

const (
	trendingTagsCacheTTL  = 5 * time.Minute
	trendingPostsCacheTTL = 2 * time.Minute
)

// TagCount is one trending hashtag with its usage inside the window
type TagCount struct {
	Tag      string    `json:"tag"`
	Count    int64     `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// UserView is an account presented on the explore surface
type UserView struct {
	User          *models.User `json:"user"`
	FollowerCount int64        `json:"follower_count"`
}

// Explorer serves the explore surfaces: trending hashtags, trending posts
// and suggested accounts. Results only ever include public content, so
// anonymous and authenticated viewers share the cached trending sets;
// viewer-specific annotation happens after the cache.
type Explorer struct {
	db     *gorm.DB
	cache  *cache.Cache
	cfg    config.FeedConfig
	logger *zap.Logger

	snapshots *SnapshotLoader
	annotator *Annotator
}

// NewExplorer creates a new explorer
func NewExplorer(database *gorm.DB, cacheClient *cache.Cache, cfg config.FeedConfig) *Explorer {
	return &Explorer{
		db:        database,
		cache:     cacheClient,
		cfg:       cfg,
		logger:    logging.WithComponent("explore"),
		snapshots: NewSnapshotLoader(database),
		annotator: NewAnnotator(database),
	}
}

// TrendingHashtags returns the most used hashtags inside the trending
// window, ordered by usage count with recency as the tie-break. A zero or
// out-of-range windowHrs falls back to the configured window.
func (e *Explorer) TrendingHashtags(ctx context.Context, windowHrs, limit int) ([]TagCount, error) {
	if limit <= 0 || limit > e.cfg.MaxPageSize {
		limit = e.cfg.DefaultPageSize
	}
	windowHrs = e.clampWindow(windowHrs)

	cacheKey := "trending:tags:" + cache.HashKey(strconv.Itoa(windowHrs), strconv.Itoa(limit))
	var cached []TagCount
	if err := e.cache.GetJSON(cacheKey, &cached); err == nil {
		return cached, nil
	}

	since := time.Now().Add(-time.Duration(windowHrs) * time.Hour)

	var tags []TagCount
	err := e.db.WithContext(ctx).
		Table("chirp_hashtags h").
		Select("h.tag AS tag, COUNT(*) AS count, MAX(p.created_at) AS last_used").
		Joins("INNER JOIN chirp_post_hashtags ph ON ph.hashtag_id = h.id").
		Joins("INNER JOIN chirp_posts p ON p.id = ph.post_id").
		Joins("INNER JOIN chirp_users u ON u.id = p.author_id").
		Where("p.created_at > ? AND p.is_deleted = ?", since, false).
		Where("u.is_private = ? AND u.state = ?", false, models.UserStateActive).
		Group("h.tag").
		Order("count DESC, last_used DESC").
		Limit(limit).
		Scan(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trending hashtags: %w", err)
	}
	sortTagCounts(tags)

	if err := e.cache.SetJSON(cacheKey, tags, trendingTagsCacheTTL); err != nil && err != cache.ErrCacheDisabled {
		e.logger.Warn("Failed to cache trending hashtags", zap.Error(err))
	}
	return tags, nil
}

// TrendingPosts returns the highest-scoring public top-level posts inside
// the trending window. Score is likes + 2*reposts + replies; ties break on
// recency. Viewer may be nil (anonymous explore).
func (e *Explorer) TrendingPosts(ctx context.Context, viewer *models.User, windowHrs, limit int) ([]*PostView, error) {
	if limit <= 0 || limit > e.cfg.MaxPageSize {
		limit = e.cfg.DefaultPageSize
	}
	windowHrs = e.clampWindow(windowHrs)

	since := time.Now().Add(-time.Duration(windowHrs) * time.Hour)

	// Over-fetch so visibility filtering for this viewer still fills the
	// page: trending candidates are public, but block and mute relations
	// remain per-viewer.
	var posts []*models.Post
	err := e.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(`chirp_posts.*,
			(SELECT COUNT(*) FROM chirp_likes l WHERE l.post_id = chirp_posts.id)
			+ 2 * (SELECT COUNT(*) FROM chirp_posts r WHERE r.repost_id = chirp_posts.id AND r.is_deleted = false)
			+ (SELECT COUNT(*) FROM chirp_posts c WHERE c.parent_id = chirp_posts.id AND c.is_deleted = false) AS score`).
		Joins("INNER JOIN chirp_users u ON u.id = chirp_posts.author_id").
		Where("chirp_posts.created_at > ? AND chirp_posts.is_deleted = ?", since, false).
		Where("chirp_posts.parent_id IS NULL AND chirp_posts.repost_id IS NULL").
		Where("u.is_private = ? AND u.state = ?", false, models.UserStateActive).
		Order("score DESC, chirp_posts.created_at DESC, chirp_posts.id DESC").
		Limit(limit * 3).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trending posts: %w", err)
	}

	snap := EmptySnapshot()
	if viewer != nil {
		if snap, err = e.snapshots.Load(ctx, viewer.ID); err != nil {
			return nil, fmt.Errorf("failed to load relation snapshot: %w", err)
		}
	}

	authors, err := loadAuthors(ctx, e.db, posts)
	if err != nil {
		return nil, err
	}
	kept := FilterVisible(viewer, snap, posts, authors)

	views, err := e.annotator.Annotate(ctx, viewer, kept)
	if err != nil {
		return nil, err
	}

	// The candidate query ordered by a snapshot of the counters; rank the
	// final page off the annotated counts so the response is consistent
	// with what it displays.
	sortTrending(views)
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// SuggestedAccounts returns public active accounts the viewer does not yet
// follow, ranked by follower count. Accounts the viewer has blocked, been
// blocked by, or muted are never suggested. Viewer may be nil.
func (e *Explorer) SuggestedAccounts(ctx context.Context, viewer *models.User) ([]UserView, error) {
	snap := EmptySnapshot()
	if viewer != nil {
		var err error
		if snap, err = e.snapshots.Load(ctx, viewer.ID); err != nil {
			return nil, fmt.Errorf("failed to load relation snapshot: %w", err)
		}
	}

	// Over-fetch by the size of the exclusion sets so filtering cannot
	// leave the list short.
	limit := e.cfg.SuggestedLimit
	fetchLimit := limit + len(snap.Following) + len(snap.Blocked) + len(snap.Muted) + 1

	var rows []struct {
		models.User
		FollowerCount int64 `gorm:"column:follower_count"`
	}
	if err := e.db.WithContext(ctx).
		Model(&models.User{}).
		Select(`chirp_users.*,
			(SELECT COUNT(*) FROM chirp_follows f WHERE f.following_id = chirp_users.id) AS follower_count`).
		Where("is_private = ? AND state = ?", false, models.UserStateActive).
		Order("follower_count DESC, chirp_users.id ASC").
		Limit(fetchLimit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load suggested accounts: %w", err)
	}

	candidates := make([]UserView, 0, len(rows))
	for i := range rows {
		user := rows[i].User
		candidates = append(candidates, UserView{User: &user, FollowerCount: rows[i].FollowerCount})
	}
	return filterSuggestions(viewer, snap, candidates, limit), nil
}

// filterSuggestions drops the viewer's own account and every account the
// viewer already follows, has a block relation with in either direction,
// or mutes. Order is preserved.
func filterSuggestions(viewer *models.User, snap *RelationSnapshot, candidates []UserView, limit int) []UserView {
	out := make([]UserView, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if viewer != nil && c.User.ID == viewer.ID {
			continue
		}
		if snap.Following[c.User.ID] || snap.Blocked[c.User.ID] || snap.Muted[c.User.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// trendingScore ranks a post by engagement inside the window. Reposts
// weigh double.
func trendingScore(likes, reposts, replies int64) int64 {
	return likes + 2*reposts + replies
}

// sortTrending orders annotated views by score, newest first among ties
func sortTrending(views []*PostView) {
	sort.SliceStable(views, func(i, j int) bool {
		si := trendingScore(views[i].LikeCount, views[i].RepostCount, views[i].ReplyCount)
		sj := trendingScore(views[j].LikeCount, views[j].RepostCount, views[j].ReplyCount)
		if si != sj {
			return si > sj
		}
		if !views[i].Post.CreatedAt.Equal(views[j].Post.CreatedAt) {
			return views[i].Post.CreatedAt.After(views[j].Post.CreatedAt)
		}
		return views[i].Post.ID > views[j].Post.ID
	})
}

// sortTagCounts orders tags by usage count, breaking ties by most recent
// use and then tag name so the ranking is deterministic.
func sortTagCounts(tags []TagCount) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		if !tags[i].LastUsed.Equal(tags[j].LastUsed) {
			return tags[i].LastUsed.After(tags[j].LastUsed)
		}
		return tags[i].Tag < tags[j].Tag
	})
}

// clampWindow bounds a caller-supplied window to the same range the config
// validator allows, falling back to the configured default.
func (e *Explorer) clampWindow(windowHrs int) int {
	if windowHrs <= 0 || windowHrs > 720 {
		return e.cfg.TrendingWindowHrs
	}
	return windowHrs
}
