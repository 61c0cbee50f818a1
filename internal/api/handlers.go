package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/feed"
	"github.com/chirpnet/chirp/internal/models"
	"github.com/chirpnet/chirp/internal/notes"
	"github.com/chirpnet/chirp/internal/posts"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

// Handlers holds the request handlers and their service dependencies
type Handlers struct {
	assembler *feed.Assembler
	explorer  *feed.Explorer
	searcher  *feed.Searcher
	annotator *feed.Annotator
	snapshots *feed.SnapshotLoader
	posts     *posts.Service
	notes     *notes.Resolver
	users     *db.UserRepository
	postRepo  *db.PostRepository
	cfg       *config.Config
	logger    *zap.Logger
}

type createPostRequest struct {
	Body    string   `json:"body" binding:"required"`
	Media   []string `json:"media"`
	QuoteID *int64   `json:"quote_id"`
}

type editPostRequest struct {
	Body string `json:"body" binding:"required"`
}

type createNoteRequest struct {
	Body     string   `json:"body" binding:"required"`
	Sources  []string `json:"sources" binding:"required"`
	Category string   `json:"category" binding:"required"`
}

type rateNoteRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

// Timeline returns one page of the viewer's home timeline
func (h *Handlers) Timeline(c *gin.Context) {
	viewer := Viewer(c)
	cursor := feed.DecodeCursorOrZero(c.Query("cursor"))
	limit := queryInt(c, "limit", 0)

	page, err := h.assembler.HomeTimeline(c.Request.Context(), viewer, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       postListJSON(page.Posts),
		"next_cursor": page.NextCursor,
	})
}

// ExploreTrending returns the trending hashtags and posts
func (h *Handlers) ExploreTrending(c *gin.Context) {
	viewer := Viewer(c)
	window := queryInt(c, "window", 0)
	limit := queryInt(c, "limit", 0)

	ctx := c.Request.Context()
	tags, err := h.explorer.TrendingHashtags(ctx, window, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	trending, err := h.explorer.TrendingPosts(ctx, viewer, window, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hashtags": tags,
		"posts":    postListJSON(trending),
	})
}

// ExploreSuggested returns accounts the viewer may want to follow
func (h *Handlers) ExploreSuggested(c *gin.Context) {
	suggested, err := h.explorer.SuggestedAccounts(c.Request.Context(), Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	users := make([]gin.H, 0, len(suggested))
	for _, s := range suggested {
		entry := userJSON(s.User)
		entry["follower_count"] = s.FollowerCount
		users = append(users, entry)
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Search runs a query over posts, users and hashtags
func (h *Handlers) Search(c *gin.Context) {
	results, err := h.searcher.Search(c.Request.Context(), Viewer(c), c.Query("q"), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := gin.H{}
	if results.Posts != nil {
		out["posts"] = postListJSON(results.Posts)
	}
	if results.Users != nil {
		users := make([]gin.H, 0, len(results.Users))
		for _, u := range results.Users {
			users = append(users, userJSON(u))
		}
		out["users"] = users
	}
	if results.Hashtags != nil {
		out["hashtags"] = results.Hashtags
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// GetPost returns one annotated post with its approved community notes
func (h *Handlers) GetPost(c *gin.Context) {
	viewer := Viewer(c)
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	post, err := h.postRepo.GetByID(ctx, postID)
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		respondError(c, fmt.Errorf("post %d: %w", postID, db.ErrNotFound))
		return
	}

	if err := h.checkVisible(c, viewer, post); err != nil {
		respondError(c, err)
		return
	}

	views, err := h.annotator.Annotate(ctx, viewer, []*models.Post{post})
	if err != nil {
		respondError(c, err)
		return
	}
	if len(views) == 0 {
		respondError(c, fmt.Errorf("post %d: %w", postID, db.ErrNotFound))
		return
	}

	approved, err := h.notes.ApprovedForPost(ctx, views[0].Display().ID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := postJSON(views[0])
	out["notes"] = noteListJSON(approved)
	c.JSON(http.StatusOK, out)
}

// CreatePost creates a new top-level or quote post
func (h *Handlers) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), Viewer(c), posts.CreateInput{
		Body:    req.Body,
		Media:   req.Media,
		QuoteID: req.QuoteID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSinglePost(c, http.StatusCreated, post)
}

// CreateReply creates a reply to an existing post
func (h *Handlers) CreateReply(c *gin.Context) {
	parentID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), Viewer(c), posts.CreateInput{
		Body:     req.Body,
		Media:    req.Media,
		ParentID: &parentID,
		QuoteID:  req.QuoteID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSinglePost(c, http.StatusCreated, post)
}

// EditPost edits a post within the edit window
func (h *Handlers) EditPost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	post, err := h.posts.Edit(c.Request.Context(), Viewer(c), postID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSinglePost(c, http.StatusOK, post)
}

// DeletePost soft-deletes a post
func (h *Handlers) DeletePost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.posts.Delete(c.Request.Context(), Viewer(c), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ToggleLike toggles the viewer's like on a post
func (h *Handlers) ToggleLike(c *gin.Context) {
	h.toggle(c, h.posts.ToggleLike, "liked", "like_count")
}

// ToggleBookmark toggles the viewer's bookmark on a post
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	h.toggle(c, h.posts.ToggleBookmark, "bookmarked", "bookmark_count")
}

// ToggleRepost toggles the viewer's repost of a post
func (h *Handlers) ToggleRepost(c *gin.Context) {
	h.toggle(c, h.posts.ToggleRepost, "reposted", "repost_count")
}

// TogglePin pins or unpins one of the viewer's own posts
func (h *Handlers) TogglePin(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	pinned, err := h.posts.TogglePin(c.Request.Context(), Viewer(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pinned": pinned})
}

// HashtagPage returns recent posts carrying one hashtag
func (h *Handlers) HashtagPage(c *gin.Context) {
	views, err := h.searcher.PostsByTag(c.Request.Context(), Viewer(c), c.Param("tag"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postListJSON(views)})
}

// Bookmarks returns the viewer's bookmarked posts
func (h *Handlers) Bookmarks(c *gin.Context) {
	views, err := h.assembler.Bookmarks(c.Request.Context(), Viewer(c), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postListJSON(views)})
}

// CreateNote proposes a community note on a post
func (h *Handlers) CreateNote(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), Viewer(c), postID, req.Body, req.Sources, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, noteJSON(note))
}

// RateNote records a helpfulness rating on a pending note
func (h *Handlers) RateNote(c *gin.Context) {
	noteID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req rateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.notes.Rate(c.Request.Context(), Viewer(c), noteID, *req.Helpful)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        models.NoteStatusName(result.Note.Status),
		"helpful_count": result.Note.HelpfulCount,
	})
}

// toggle runs one of the interaction toggles and writes its result
func (h *Handlers) toggle(c *gin.Context, fn func(ctx context.Context, actor *models.User, postID int64) (*posts.ToggleResult, error), stateKey, countKey string) {
	postID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := fn(c.Request.Context(), Viewer(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		stateKey: result.Active,
		countKey: result.Count,
	})
}

// respondSinglePost annotates a freshly written post for the response
func (h *Handlers) respondSinglePost(c *gin.Context, status int, post *models.Post) {
	views, err := h.annotator.Annotate(c.Request.Context(), Viewer(c), []*models.Post{post})
	if err != nil || len(views) == 0 {
		if err == nil {
			err = fmt.Errorf("post %d: %w", post.ID, db.ErrNotFound)
		}
		respondError(c, err)
		return
	}
	c.JSON(status, postJSON(views[0]))
}

// checkVisible applies the visibility filter to a single post lookup
func (h *Handlers) checkVisible(c *gin.Context, viewer *models.User, post *models.Post) error {
	ctx := c.Request.Context()

	snap := feed.EmptySnapshot()
	if viewer != nil {
		var err error
		if snap, err = h.snapshots.Load(ctx, viewer.ID); err != nil {
			return err
		}
	}
	author, err := h.users.GetByID(ctx, post.AuthorID)
	if err != nil {
		return err
	}

	decision := feed.Decide(viewer, snap, post, author)
	if !decision.Visible() {
		logging.GetLogger().Debug("Post hidden from viewer",
			zap.Int64("post_id", post.ID),
			zap.String("reason", decision.Reason.String()))
		return fmt.Errorf("post %d is %s: %w", post.ID, decision.Reason, db.ErrForbidden)
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s parameter: %w", name, db.ErrNotFound)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func postListJSON(views []*feed.PostView) []gin.H {
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, postJSON(v))
	}
	return out
}

func postJSON(v *feed.PostView) gin.H {
	p := v.Post
	out := gin.H{
		"id":                p.ID,
		"author":            userJSON(v.Author),
		"body":              p.Body,
		"media":             json.RawMessage(p.Media),
		"is_edited":         p.IsEdited,
		"is_pinned":         p.IsPinned,
		"created_at":        p.CreatedAt,
		"like_count":        v.LikeCount,
		"repost_count":      v.RepostCount,
		"reply_count":       v.ReplyCount,
		"viewer_liked":      v.ViewerLiked,
		"viewer_reposted":   v.ViewerReposted,
		"viewer_bookmarked": v.ViewerBookmarked,
	}
	if p.IsReply() {
		out["parent_id"] = p.ParentID.Int64
	}
	if p.QuoteID.Valid {
		out["quote_id"] = p.QuoteID.Int64
	}
	if p.EditedAt.Valid {
		out["edited_at"] = p.EditedAt.Time
	}
	if v.RepostOf != nil {
		out["repost_of"] = gin.H{
			"id":         v.RepostOf.ID,
			"author":     userJSON(v.RepostAuthor),
			"body":       v.RepostOf.Body,
			"media":      json.RawMessage(v.RepostOf.Media),
			"is_edited":  v.RepostOf.IsEdited,
			"created_at": v.RepostOf.CreatedAt,
		}
	}
	return out
}

func userJSON(u *models.User) gin.H {
	if u == nil {
		return nil
	}
	return gin.H{
		"id":           u.ID,
		"handle":       u.Handle,
		"display_name": u.DisplayName,
		"bio":          u.Bio,
		"profile_pic":  u.ProfilePic,
		"is_verified":  u.IsVerified,
		"is_private":   u.IsPrivate,
	}
}

func noteListJSON(list []*models.CommunityNote) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, n := range list {
		out = append(out, noteJSON(n))
	}
	return out
}

func noteJSON(n *models.CommunityNote) gin.H {
	return gin.H{
		"id":                n.ID,
		"post_id":           n.PostID,
		"body":              n.Body,
		"sources":           json.RawMessage(n.Sources),
		"category":          n.Category,
		"status":            models.NoteStatusName(n.Status),
		"helpful_count":     n.HelpfulCount,
		"not_helpful_count": n.NotHelpfulCount,
		"created_at":        n.CreatedAt,
	}
}
