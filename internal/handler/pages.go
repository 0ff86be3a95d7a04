package handler

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"dailycrypto/internal/cms"
	"dailycrypto/internal/model"
	"dailycrypto/internal/service"
	"dailycrypto/web"
)

const (
	homeFeatured = 4
	homeLatest   = 9
	homeStories  = 6
	relatedCount = 3

	ogWidth  = 1200
	ogHeight = 630
)

// PageMeta is the <head> metadata of a page.
type PageMeta struct {
	Title       string
	OGTitle     string
	Description string
	Keywords    []string
	Canonical   string
	Image       string
	Type        string // website, article
	SiteName    string
	Author      string
	Published   *time.Time
	Modified    *time.Time
}

// ShareLinks are the social share URLs of an article page.
type ShareLinks struct {
	X        string
	Facebook string
	Telegram string
}

// Templates parses the embedded page templates with the handler's helpers.
func (h *Handler) Templates() (*template.Template, error) {
	return web.Templates(h.FuncMap())
}

func (h *Handler) FuncMap() template.FuncMap {
	return template.FuncMap{
		"date": h.formatDate,
		"iso": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(time.RFC3339)
		},
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return humanize.Time(t)
		},
		"readingTime": func(minutes int) string {
			if minutes <= 0 {
				return ""
			}
			return humanize.Comma(int64(minutes)) + " min read"
		},
		"join": strings.Join,
		"year": func() int { return time.Now().In(h.loc).Year() },
	}
}

// formatDate renders a long date in the site timezone, e.g. "June 2, 2025".
func (h *Handler) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(h.loc).Format("January 2, 2006")
}

func (h *Handler) HomePage(c *gin.Context) {
	var featured, latest, stories []model.Article

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		featured = h.articles.ListFeatured(ctx, service.ListOptions{Limit: homeFeatured})
		return nil
	})
	g.Go(func() error {
		latest = h.articles.ListPublished(ctx, service.ListOptions{Limit: homeLatest})
		return nil
	})
	g.Go(func() error {
		stories = h.articles.ListStatic(ctx, homeStories)
		return nil
	})
	_ = g.Wait()

	data := gin.H{
		"meta": PageMeta{
			Title:       h.site.Name + " | Crypto News and Market Analysis",
			OGTitle:     h.site.Name,
			Description: "The latest cryptocurrency news, market analysis and blockchain stories.",
			Canonical:   h.absURL("/"),
			Type:        "website",
			SiteName:    h.site.Name,
		},
		"latest":  latest,
		"stories": stories,
	}
	if len(featured) > 0 {
		data["hero"] = featured[0]
		data["secondary"] = featured[1:]
	}

	c.HTML(http.StatusOK, "home.html", data)
}

func (h *Handler) NewsPage(c *gin.Context) {
	articles := h.articles.ListPublished(c.Request.Context(), service.ListOptions{})

	c.HTML(http.StatusOK, "news.html", gin.H{
		"meta": PageMeta{
			Title:       "Latest News | " + h.site.Name,
			OGTitle:     "Latest News",
			Description: "All the latest cryptocurrency and blockchain news.",
			Canonical:   h.absURL("/news"),
			Type:        "website",
			SiteName:    h.site.Name,
		},
		"heading":  "Latest News",
		"articles": articles,
	})
}

func (h *Handler) CategoryPage(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	articles := h.articles.ListByCategory(c.Request.Context(), name, service.ListOptions{})

	c.HTML(http.StatusOK, "news.html", gin.H{
		"meta": PageMeta{
			Title:       name + " News | " + h.site.Name,
			OGTitle:     name + " News",
			Description: "The latest " + name + " news and analysis.",
			Canonical:   h.absURL("/news/category/" + url.PathEscape(name)),
			Type:        "website",
			SiteName:    h.site.Name,
		},
		"heading":  name + " News",
		"category": name,
		"articles": articles,
	})
}

func (h *Handler) ArticlePage(c *gin.Context) {
	slug := c.Param("slug")
	article := h.articles.GetBySlug(c.Request.Context(), slug, cms.Freshness{})
	if article == nil {
		h.log.Debug().Str("slug", slug).Msg("article not found")
		h.NotFoundPage(c)
		return
	}

	related := h.articles.Related(c.Request.Context(), article.Slug, relatedCount)

	c.HTML(http.StatusOK, "article.html", gin.H{
		"meta":    h.articleMeta(article),
		"article": article,
		"body":    h.renderer.HTML(article.Content),
		"share":   h.shareLinks(article),
		"related": related,
	})
}

// NotFoundPage renders the 404 page for a missing article.
func (h *Handler) NotFoundPage(c *gin.Context) {
	h.notFound(c, "Article Not Found",
		"The requested article could not be found. It may have been moved or unpublished.")
}

func (h *Handler) notFound(c *gin.Context, heading, message string) {
	c.HTML(http.StatusNotFound, "notfound.html", gin.H{
		"meta": PageMeta{
			Title:       heading + " | " + h.site.Name,
			OGTitle:     heading,
			Description: message,
			Type:        "website",
			SiteName:    h.site.Name,
		},
		"heading": heading,
		"message": message,
	})
}

// articleMeta prefers the SEO overrides and falls back to the article itself.
func (h *Handler) articleMeta(a *model.Article) PageMeta {
	meta := PageMeta{
		Title:       a.Title + " | " + h.site.Name,
		OGTitle:     a.Title,
		Description: a.Excerpt,
		Canonical:   h.absURL("/news/" + url.PathEscape(a.Slug)),
		Image:       h.ogImage(a.CoverImage),
		Type:        "article",
		SiteName:    h.site.Name,
		Author:      a.Author.Name,
		Modified:    a.ModifiedAt,
	}
	if !a.PublishedAt.IsZero() {
		published := a.PublishedAt
		meta.Published = &published
	}

	if a.SEO != nil {
		if a.SEO.MetaTitle != "" {
			meta.Title = a.SEO.MetaTitle
		}
		if a.SEO.MetaDescription != "" {
			meta.Description = a.SEO.MetaDescription
		}
		meta.Keywords = a.SEO.Keywords
	}
	return meta
}

func (h *Handler) ogImage(cover string) string {
	if cover == "" {
		return ""
	}
	if h.images != nil {
		cover = h.images.Resize(cover, ogWidth, ogHeight)
	}
	return h.absURL(cover)
}

func (h *Handler) shareLinks(a *model.Article) ShareLinks {
	link := h.absURL("/news/" + url.PathEscape(a.Slug))
	return ShareLinks{
		X:        "https://twitter.com/intent/tweet?" + url.Values{"url": {link}, "text": {a.Title}}.Encode(),
		Facebook: "https://www.facebook.com/sharer/sharer.php?" + url.Values{"u": {link}}.Encode(),
		Telegram: "https://t.me/share/url?" + url.Values{"url": {link}, "text": {a.Title}}.Encode(),
	}
}

// absURL resolves a site-relative path against the configured base URL.
// Protocol-relative URLs take the base URL's scheme.
func (h *Handler) absURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		scheme := "https"
		if base, err := url.Parse(h.site.BaseURL); err == nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		return scheme + ":" + path
	}
	base := strings.TrimRight(h.site.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
