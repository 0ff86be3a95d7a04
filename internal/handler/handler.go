package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dailycrypto/config"
	"dailycrypto/internal/imageurl"
	"dailycrypto/internal/model"
	"dailycrypto/internal/render"
	"dailycrypto/internal/service"
	"dailycrypto/internal/store"
)

type Deps struct {
	Articles *service.ArticleService
	Feeds    *service.FeedService
	Status   *service.StatusService
	Store    *store.Store
	Renderer *render.Renderer
	Images   *imageurl.Builder
	Site     config.SiteConfig
	Log      zerolog.Logger
}

type Handler struct {
	articles  *service.ArticleService
	feed      *service.FeedService
	status    *service.StatusService
	store     *store.Store
	renderer  *render.Renderer
	images    *imageurl.Builder
	site      config.SiteConfig
	loc       *time.Location
	log       zerolog.Logger
	scheduler interface {
		GetNextWarmTime() time.Time
		GetNextFetchTime() time.Time
	}
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		articles: d.Articles,
		feed:     d.Feeds,
		status:   d.Status,
		store:    d.Store,
		renderer: d.Renderer,
		images:   d.Images,
		site:     d.Site,
		loc:      d.Site.Location(),
		log:      d.Log.With().Str("component", "http").Logger(),
	}
}

// SetScheduler lets the status endpoint report the next job runs.
func (h *Handler) SetScheduler(scheduler interface {
	GetNextWarmTime() time.Time
	GetNextFetchTime() time.Time
}) {
	h.scheduler = scheduler
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// pages
	r.GET("/", h.HomePage)
	r.GET("/news", h.NewsPage)
	r.GET("/news/:slug", h.ArticlePage)
	r.GET("/news/category/:name", h.CategoryPage)
	r.NoRoute(h.noRoute)

	api := r.Group("/api")
	{
		// articles
		api.GET("/articles", h.ListArticles)
		api.GET("/articles/featured", h.ListFeatured)
		api.GET("/articles/:slug", h.GetArticle)
		api.GET("/slugs", h.ListSlugs)

		// fallback feeds
		if h.store != nil && h.feed != nil {
			api.GET("/feeds", h.ListFeeds)
			api.POST("/feeds", h.CreateFeed)
			api.DELETE("/feeds/:id", h.DeleteFeed)
			api.POST("/feeds/:id/fetch", h.FetchFeed)
		}

		// status
		api.GET("/status", h.GetStatus)
	}
}

// ===== Feeds =====

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.store.ListFeeds(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, feeds)
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var feed model.Feed
	if err := c.ShouldBindJSON(&feed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	feed.ID = 0

	if err := h.store.CreateFeed(c.Request.Context(), &feed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, feed)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}

	err := h.store.DeleteFeed(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) FetchFeed(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}

	feed, err := h.store.GetFeed(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	count, err := h.feed.FetchFeed(c.Request.Context(), feed)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_articles": count})
}

func feedID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feed id"})
		return 0, false
	}
	return uint(id), true
}

// ===== Status =====

func (h *Handler) GetStatus(c *gin.Context) {
	status, err := h.status.GetSystemStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.scheduler != nil {
		status.NextWarmTime = h.scheduler.GetNextWarmTime()
		status.NextFetchTime = h.scheduler.GetNextFetchTime()
	}

	c.JSON(http.StatusOK, status)
}
