package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/feed"
	"github.com/chirpnet/chirp/internal/notes"
	"github.com/chirpnet/chirp/internal/posts"
	"github.com/chirpnet/chirp/pkg/config"
	"github.com/chirpnet/chirp/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handlers *Handlers
	db       *db.DB
	cache    *cache.Cache
	cfg      *config.Config
	logger   *zap.Logger
}

// NewRouter creates a new API router with its service graph
func NewRouter(database *db.DB, redisCache *cache.Cache, cfg *config.Config) *Router {
	repo := db.NewRepository(database.DB)

	handlers := &Handlers{
		assembler: feed.NewAssembler(database.DB, cfg.Feed),
		explorer:  feed.NewExplorer(database.DB, redisCache, cfg.Feed),
		searcher:  feed.NewSearcher(database.DB, cfg.Feed),
		annotator: feed.NewAnnotator(database.DB),
		snapshots: feed.NewSnapshotLoader(database.DB),
		posts:     posts.NewService(database.DB, cfg.Posts),
		notes:     notes.NewResolver(database.DB, cfg.Notes),
		users:     db.NewUserRepository(repo),
		postRepo:  db.NewPostRepository(repo),
		cfg:       cfg,
		logger:    logging.WithComponent("api"),
	}

	return &Router{
		handlers: handlers,
		db:       database,
		cache:    redisCache,
		cfg:      cfg,
		logger:   logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(RequestLogger())
	if r.cfg.Telemetry.Enabled {
		engine.Use(Tracing())
	}

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	h := r.handlers
	v1 := engine.Group("/api/v1")
	v1.Use(ViewerResolver(h.users))

	// Anonymous-friendly reads
	v1.GET("/explore/trending", h.ExploreTrending)
	v1.GET("/search", h.Search)
	v1.GET("/posts/:id", h.GetPost)
	v1.GET("/hashtag/:tag", h.HashtagPage)

	// Viewer-only surface
	authed := v1.Group("")
	authed.Use(RequireViewer())
	authed.GET("/timeline", h.Timeline)
	authed.GET("/explore/suggested", h.ExploreSuggested)
	authed.GET("/bookmarks", h.Bookmarks)
	authed.POST("/posts", h.CreatePost)
	authed.POST("/posts/:id/reply", h.CreateReply)
	authed.PATCH("/posts/:id", h.EditPost)
	authed.DELETE("/posts/:id", h.DeletePost)
	authed.POST("/posts/:id/like", h.ToggleLike)
	authed.POST("/posts/:id/bookmark", h.ToggleBookmark)
	authed.POST("/posts/:id/repost", h.ToggleRepost)
	authed.POST("/posts/:id/pin", h.TogglePin)
	authed.POST("/posts/:id/notes", h.CreateNote)
	authed.POST("/notes/:id/rate", h.RateNote)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	status := http.StatusOK
	dbState := "OK"
	if err := r.db.Health(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		dbState = err.Error()
	}

	cacheState := "disabled"
	if r.cache != nil {
		cacheState = "OK"
		if err := r.cache.Health(c.Request.Context()); err != nil {
			cacheState = err.Error()
		}
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"service":  "chirpd",
		"database": dbState,
		"cache":    cacheState,
	})
}
