package feed

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/models"
)

// PostView is a feed entry ready for presentation: the post row, its
// author, the referenced original for repost wrappers, derived counters and
// the viewer's interaction flags.
type PostView struct {
	Post         *models.Post
	Author       *models.User
	RepostOf     *models.Post
	RepostAuthor *models.User

	LikeCount   int64
	RepostCount int64
	ReplyCount  int64

	ViewerLiked      bool
	ViewerReposted   bool
	ViewerBookmarked bool
}

// Display returns the post whose content is rendered: the referenced
// original for repost wrappers, the entry itself otherwise.
func (v *PostView) Display() *models.Post {
	if v.RepostOf != nil {
		return v.RepostOf
	}
	return v.Post
}

// Annotator attaches counters and viewer flags to pages of posts.
// All lookups are batched by post ID; it never issues per-post queries.
type Annotator struct {
	db *gorm.DB
}

// NewAnnotator creates a new annotator
func NewAnnotator(database *gorm.DB) *Annotator {
	return &Annotator{db: database}
}

type countRow struct {
	PostID int64 `gorm:"column:post_id"`
	Total  int64 `gorm:"column:total"`
}

// Annotate builds PostViews for a page of posts. Counters are computed
// against the displayed post, so a repost wrapper carries the original's
// counts. Viewer may be nil; flags are then false.
func (a *Annotator) Annotate(ctx context.Context, viewer *models.User, posts []*models.Post) ([]*PostView, error) {
	if len(posts) == 0 {
		return []*PostView{}, nil
	}

	// Load referenced originals for repost wrappers
	originalIDs := make([]int64, 0)
	for _, p := range posts {
		if p.IsRepost() {
			originalIDs = append(originalIDs, p.RepostID.Int64)
		}
	}
	originals := make(map[int64]*models.Post, len(originalIDs))
	if len(originalIDs) > 0 {
		var rows []*models.Post
		if err := a.db.WithContext(ctx).Where("id IN ?", originalIDs).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load reposted originals: %w", err)
		}
		for _, r := range rows {
			originals[r.ID] = r
		}
	}

	// Load authors of entries and originals in one query
	authorIDSet := make(map[int64]bool)
	for _, p := range posts {
		authorIDSet[p.AuthorID] = true
	}
	for _, o := range originals {
		authorIDSet[o.AuthorID] = true
	}
	authorIDs := make([]int64, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}
	authors := make(map[int64]*models.User, len(authorIDs))
	var users []*models.User
	if err := a.db.WithContext(ctx).Where("id IN ?", authorIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	for _, u := range users {
		authors[u.ID] = u
	}

	// Counters are keyed by the displayed post
	displayIDSet := make(map[int64]bool, len(posts))
	for _, p := range posts {
		if p.IsRepost() {
			displayIDSet[p.RepostID.Int64] = true
		} else {
			displayIDSet[p.ID] = true
		}
	}
	displayIDs := make([]int64, 0, len(displayIDSet))
	for id := range displayIDSet {
		displayIDs = append(displayIDs, id)
	}

	likeCounts, err := a.countByPost(ctx, a.db.Model(&models.Like{}).Select("post_id, COUNT(*) AS total").Where("post_id IN ?", displayIDs).Group("post_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	replyCounts, err := a.countByPost(ctx, a.db.Model(&models.Post{}).Select("parent_id AS post_id, COUNT(*) AS total").Where("parent_id IN ? AND is_deleted = ?", displayIDs, false).Group("parent_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to count replies: %w", err)
	}
	repostCounts, err := a.countByPost(ctx, a.db.Model(&models.Post{}).Select("repost_id AS post_id, COUNT(*) AS total").Where("repost_id IN ? AND is_deleted = ?", displayIDs, false).Group("repost_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to count reposts: %w", err)
	}

	liked := map[int64]bool{}
	bookmarked := map[int64]bool{}
	reposted := map[int64]bool{}
	if viewer != nil {
		if liked, err = a.membership(ctx, a.db.Model(&models.Like{}).Where("user_id = ? AND post_id IN ?", viewer.ID, displayIDs), "post_id"); err != nil {
			return nil, fmt.Errorf("failed to load viewer likes: %w", err)
		}
		if bookmarked, err = a.membership(ctx, a.db.Model(&models.Bookmark{}).Where("user_id = ? AND post_id IN ?", viewer.ID, displayIDs), "post_id"); err != nil {
			return nil, fmt.Errorf("failed to load viewer bookmarks: %w", err)
		}
		if reposted, err = a.membership(ctx, a.db.Model(&models.Post{}).Where("author_id = ? AND repost_id IN ? AND is_deleted = ?", viewer.ID, displayIDs, false), "repost_id"); err != nil {
			return nil, fmt.Errorf("failed to load viewer reposts: %w", err)
		}
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		view := &PostView{
			Post:   p,
			Author: authors[p.AuthorID],
		}
		displayID := p.ID
		if p.IsRepost() {
			original := originals[p.RepostID.Int64]
			if original == nil {
				continue
			}
			view.RepostOf = original
			view.RepostAuthor = authors[original.AuthorID]
			displayID = original.ID
		}
		view.LikeCount = likeCounts[displayID]
		view.ReplyCount = replyCounts[displayID]
		view.RepostCount = repostCounts[displayID]
		view.ViewerLiked = liked[displayID]
		view.ViewerBookmarked = bookmarked[displayID]
		view.ViewerReposted = reposted[displayID]
		views = append(views, view)
	}

	return views, nil
}

func (a *Annotator) countByPost(ctx context.Context, query *gorm.DB) (map[int64]int64, error) {
	var rows []countRow
	if err := query.WithContext(ctx).Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Total
	}
	return counts, nil
}

func (a *Annotator) membership(ctx context.Context, query *gorm.DB, column string) (map[int64]bool, error) {
	var ids []int64
	if err := query.WithContext(ctx).Pluck(column, &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
