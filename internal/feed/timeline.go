package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

// Page is one keyset-paginated slice of a feed
type Page struct {
	Posts      []*PostView
	NextCursor string
}

// Assembler builds the home timeline: posts and repost wrappers authored by
// the viewer and the accounts they follow, ordered by effective timestamp.
type Assembler struct {
	db        *gorm.DB
	snapshots *SnapshotLoader
	annotator *Annotator
	cfg       config.FeedConfig
	logger    *zap.Logger
}

// NewAssembler creates a new timeline assembler
func NewAssembler(database *gorm.DB, cfg config.FeedConfig) *Assembler {
	return &Assembler{
		db:        database,
		snapshots: NewSnapshotLoader(database),
		annotator: NewAnnotator(database),
		cfg:       cfg,
		logger:    logging.WithComponent("timeline"),
	}
}

// batch is one raw candidate fetch after visibility filtering
type batch struct {
	kept      []*models.Post
	next      Cursor // anchor of the last raw candidate, filtered or not
	exhausted bool
}

// fillPage pulls filtered candidate batches until the page is full, the
// source is exhausted, or the backfill cap is hit. It returns the page, the
// anchor for the next page, and whether more entries may exist.
//
// The anchor advances over hidden candidates so a blocked-heavy stretch of
// the feed is skipped instead of re-fetched.
func fillPage(limit, backfill int, start Cursor, fetch func(after Cursor, n int) (batch, error)) ([]*models.Post, Cursor, bool, error) {
	var out []*models.Post
	after := start
	exhausted := false

	for attempt := 0; attempt <= backfill; attempt++ {
		need := limit + 1 - len(out)
		b, err := fetch(after, need)
		if err != nil {
			return nil, Cursor{}, false, err
		}
		out = append(out, b.kept...)
		after = b.next
		if b.exhausted {
			exhausted = true
			break
		}
		if len(out) > limit {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		return out, Cursor{TS: last.CreatedAt, ID: last.ID}, true, nil
	}
	return out, after, !exhausted, nil
}

// HomeTimeline returns one page of the viewer's home timeline. A zero
// cursor starts from the newest entry. Duplicate appearances of the same
// underlying post (native entry plus repost wrapper) are both kept; the
// feed is an activity log.
//
// Ties on created_at are broken by descending id. IDs are assigned by a
// single sequence here so the ordering is stable; for imported rows it is
// still total, just not guaranteed chronological within the tied instant.
func (a *Assembler) HomeTimeline(ctx context.Context, viewer *models.User, cursor Cursor, limit int) (*Page, error) {
	limit = a.clampLimit(limit)

	snap, err := a.snapshots.Load(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relation snapshot: %w", err)
	}

	// Candidate authors are the viewer plus everyone they follow; the
	// snapshot already carries the follow set.
	authorIDs := make([]int64, 0, len(snap.Following)+1)
	for id := range snap.Following {
		authorIDs = append(authorIDs, id)
	}
	authorIDs = append(authorIDs, viewer.ID)

	var authorRows []*models.User
	if err := a.db.WithContext(ctx).Where("id IN ?", authorIDs).Find(&authorRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	authors := make(map[int64]*models.User, len(authorRows))
	for _, u := range authorRows {
		authors[u.ID] = u
	}

	fetch := func(after Cursor, n int) (batch, error) {
		query := a.db.WithContext(ctx).
			Where("author_id IN ?", authorIDs).
			Where("is_deleted = ?", false)
		if !after.IsZero() {
			query = query.Where("(created_at, id) < (?, ?)", after.TS, after.ID)
		}

		var rows []*models.Post
		if err := query.Order("created_at DESC, id DESC").Limit(n).Find(&rows).Error; err != nil {
			return batch{}, err
		}

		b := batch{exhausted: len(rows) < n, next: after}
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			b.next = Cursor{TS: last.CreatedAt, ID: last.ID}
		}

		kept := FilterVisible(viewer, snap, rows, authors)
		kept, err := a.dropHiddenReposts(ctx, viewer, snap, kept)
		if err != nil {
			return batch{}, err
		}
		b.kept = kept
		return b, nil
	}

	page, next, hasMore, err := fillPage(limit, a.cfg.BackfillRetries, cursor, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble timeline: %w", err)
	}
	if len(page) < limit && hasMore {
		a.logger.Debug("Timeline page short after backfill cap",
			zap.Int64("viewer_id", viewer.ID),
			zap.Int("got", len(page)),
			zap.Int("want", limit))
	}

	views, err := a.annotator.Annotate(ctx, viewer, page)
	if err != nil {
		return nil, err
	}

	result := &Page{Posts: views}
	if hasMore && len(page) > 0 {
		result.NextCursor = EncodeCursor(next.TS, next.ID)
	}
	return result, nil
}

// Bookmarks returns the viewer's bookmarked posts, newest bookmark first.
func (a *Assembler) Bookmarks(ctx context.Context, viewer *models.User, limit int) ([]*PostView, error) {
	limit = a.clampLimit(limit)

	snap, err := a.snapshots.Load(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relation snapshot: %w", err)
	}

	var posts []*models.Post
	if err := a.db.WithContext(ctx).
		Model(&models.Post{}).
		Joins("INNER JOIN chirp_bookmarks ON chirp_bookmarks.post_id = chirp_posts.id").
		Where("chirp_bookmarks.user_id = ? AND chirp_posts.is_deleted = ?", viewer.ID, false).
		Order("chirp_bookmarks.created_at DESC").
		Limit(limit * 2).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}

	authors, err := loadAuthors(ctx, a.db, posts)
	if err != nil {
		return nil, err
	}
	kept := FilterVisible(viewer, snap, posts, authors)
	if len(kept) > limit {
		kept = kept[:limit]
	}

	return a.annotator.Annotate(ctx, viewer, kept)
}

// dropHiddenReposts removes repost wrappers whose referenced original is
// not visible to the viewer (deleted original, blocked original author).
func (a *Assembler) dropHiddenReposts(ctx context.Context, viewer *models.User, snap *RelationSnapshot, posts []*models.Post) ([]*models.Post, error) {
	originalIDs := make([]int64, 0)
	for _, p := range posts {
		if p.IsRepost() {
			originalIDs = append(originalIDs, p.RepostID.Int64)
		}
	}
	if len(originalIDs) == 0 {
		return posts, nil
	}

	var originals []*models.Post
	if err := a.db.WithContext(ctx).Where("id IN ?", originalIDs).Find(&originals).Error; err != nil {
		return nil, fmt.Errorf("failed to load reposted originals: %w", err)
	}
	originalsByID := make(map[int64]*models.Post, len(originals))
	for _, o := range originals {
		originalsByID[o.ID] = o
	}

	authors, err := loadAuthors(ctx, a.db, originals)
	if err != nil {
		return nil, err
	}

	kept := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.IsRepost() {
			original := originalsByID[p.RepostID.Int64]
			if original == nil {
				continue
			}
			if !Decide(viewer, snap, original, authors[original.AuthorID]).Visible() {
				continue
			}
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// loadAuthors fetches the author rows for a set of posts in one query
func loadAuthors(ctx context.Context, database *gorm.DB, posts []*models.Post) (map[int64]*models.User, error) {
	idSet := make(map[int64]bool, len(posts))
	for _, p := range posts {
		idSet[p.AuthorID] = true
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	authors := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}
	var users []*models.User
	if err := database.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	for _, u := range users {
		authors[u.ID] = u
	}
	return authors, nil
}

func (a *Assembler) clampLimit(limit int) int {
	if limit <= 0 {
		return a.cfg.DefaultPageSize
	}
	if limit > a.cfg.MaxPageSize {
		return a.cfg.MaxPageSize
	}
	return limit
}
