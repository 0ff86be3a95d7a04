package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dailycrypto/internal/cms"
	"dailycrypto/internal/model"
	"dailycrypto/internal/service"
)

const maxAPILimit = 100

// ===== Articles =====

func (h *Handler) ListArticles(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	opts := service.ListOptions{Limit: limit}
	var articles []model.Article
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		articles = h.articles.ListByCategory(c.Request.Context(), category, opts)
	} else {
		articles = h.articles.ListPublished(c.Request.Context(), opts)
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries(articles), "total": len(articles)})
}

func (h *Handler) ListFeatured(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	articles := h.articles.ListFeatured(c.Request.Context(), service.ListOptions{Limit: limit})
	c.JSON(http.StatusOK, gin.H{"data": summaries(articles), "total": len(articles)})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article := h.articles.GetBySlug(c.Request.Context(), c.Param("slug"), cms.Freshness{})
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": article,
		"html": h.renderer.HTML(article.Content),
	})
}

func (h *Handler) ListSlugs(c *gin.Context) {
	slugs := h.articles.AllSlugs(c.Request.Context(), cms.NoStore())
	c.JSON(http.StatusOK, gin.H{"data": slugs, "total": len(slugs)})
}

func (h *Handler) noRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.notFound(c, "Page Not Found", "The page you are looking for does not exist.")
}

// queryLimit reads ?limit=, 0 when absent. It writes a 400 and returns false
// for anything that is not a non-negative integer.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return min(limit, maxAPILimit), true
}

// summaries drops article bodies from list responses.
func summaries(articles []model.Article) []model.Article {
	out := make([]model.Article, len(articles))
	for i, a := range articles {
		a.Content = nil
		out[i] = a
	}
	return out
}
