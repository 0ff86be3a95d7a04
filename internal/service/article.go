package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"dailycrypto/internal/cms"
	"dailycrypto/internal/model"
	"dailycrypto/internal/normalize"
	"dailycrypto/internal/store"
)

const (
	postType     = "newsPost"
	orderField   = "datePublished"
	draftsPrefix = "drafts."

	DefaultFeaturedLimit = 3
	DefaultRelatedLimit  = 3
)

const listProjection = `{
  _id,
  title,
  slug,
  description,
  excerpt,
  coverImage { asset->{ _id, url } },
  "author": author->{ name, bio, avatar },
  "category": category->name,
  tags,
  tickers,
  datePublished,
  dateModified,
  readingTime,
  featured,
  premium,
  exclusive,
  contentType,
  impact,
  language
}`

const detailProjection = `{
  _id,
  title,
  slug,
  description,
  excerpt,
  content,
  coverImage { asset->{ _id, url } },
  "author": author->{ name, bio, avatar },
  "category": category->name,
  tags,
  tickers,
  datePublished,
  dateModified,
  readingTime,
  featured,
  premium,
  exclusive,
  contentType,
  impact,
  language,
  seo
}`

const slugProjection = `{ "slug": slug.current }`

// ListOptions controls a list query. Limit <= 0 means no limit. A zero
// Freshness falls back to the service default.
type ListOptions struct {
	Limit     int
	Freshness cms.Freshness
}

// StaticSource serves fallback articles imported from feeds.
type StaticSource interface {
	LatestStatic(ctx context.Context, limit int) ([]model.StaticArticle, error)
	StaticBySlug(ctx context.Context, slug string) (*model.StaticArticle, error)
}

// ArticleService reads published articles from the content source.
//
// No method returns an error: failures are logged and surface as an empty
// list or a nil article, which callers render as "nothing to show".
type ArticleService struct {
	fetcher cms.Fetcher
	norm    *normalize.Normalizer
	static  StaticSource
	fresh   cms.Freshness
	log     zerolog.Logger
}

// NewArticleService builds the service. static may be nil.
func NewArticleService(fetcher cms.Fetcher, norm *normalize.Normalizer, static StaticSource, fresh cms.Freshness, log zerolog.Logger) *ArticleService {
	return &ArticleService{
		fetcher: fetcher,
		norm:    norm,
		static:  static,
		fresh:   fresh,
		log:     log.With().Str("component", "articles").Logger(),
	}
}

// ListPublished returns published articles, newest first.
func (s *ArticleService) ListPublished(ctx context.Context, opts ListOptions) []model.Article {
	return s.list(ctx, "ListPublished", s.listQuery(opts.Limit), s.freshness(opts.Freshness))
}

// ListFeatured returns featured published articles, newest first.
func (s *ArticleService) ListFeatured(ctx context.Context, opts ListOptions) []model.Article {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	q := s.listQuery(limit)
	q.Filters = append(q.Filters, cms.Eq("featured", "featured", true))

	out := s.list(ctx, "ListFeatured", q, s.freshness(opts.Freshness))
	return slices.DeleteFunc(out, func(a model.Article) bool { return !a.Featured })
}

// ListByCategory returns published articles whose resolved category name is name.
func (s *ArticleService) ListByCategory(ctx context.Context, name string, opts ListOptions) []model.Article {
	name = strings.TrimSpace(name)
	if name == "" {
		return []model.Article{}
	}

	q := s.listQuery(opts.Limit)
	q.Filters = append(q.Filters, cms.Eq("category->name", "categoryName", name))
	return s.list(ctx, "ListByCategory", q, s.freshness(opts.Freshness))
}

// GetBySlug returns the published article with the given slug, or nil when
// there is none or the lookup failed. Fallback content is consulted when the
// content source has no match.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string, fresh cms.Freshness) *model.Article {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil
	}

	q := cms.Query{
		Type:          postType,
		Filters:       []cms.Filter{cms.Eq("slug.current", "slug", slug)},
		ExcludeDrafts: true,
		First:         true,
		Projection:    detailProjection,
	}

	var raw json.RawMessage
	if err := s.fetcher.Fetch(ctx, q, s.freshness(fresh), &raw); err != nil {
		s.log.Error().Err(err).Str("op", "GetBySlug").Str("slug", slug).Msg("query failed")
		return s.staticBySlug(ctx, slug)
	}

	if a, ok := s.decode(raw); ok && a.Slug == slug {
		return &a
	}
	return s.staticBySlug(ctx, slug)
}

// AllSlugs enumerates the slugs of every published article. Drafts are
// never included.
func (s *ArticleService) AllSlugs(ctx context.Context, fresh cms.Freshness) []string {
	q := cms.Query{
		Type:          postType,
		ExcludeDrafts: true,
		OrderBy:       orderField,
		Projection:    slugProjection,
	}

	var rows []struct {
		Slug json.RawMessage `json:"slug"`
	}
	if err := s.fetcher.Fetch(ctx, q, s.freshness(fresh), &rows); err != nil {
		s.log.Error().Err(err).Str("op", "AllSlugs").Msg("query failed")
		return []string{}
	}

	seen := make(map[string]struct{}, len(rows))
	slugs := make([]string, 0, len(rows))
	for _, row := range rows {
		slug := normalize.Slug(row.Slug)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	return slugs
}

// Related returns up to n of the newest articles other than slug.
func (s *ArticleService) Related(ctx context.Context, slug string, n int) []model.Article {
	if n <= 0 {
		n = DefaultRelatedLimit
	}

	out := s.list(ctx, "Related", s.listQuery(n+1), s.fresh)
	out = slices.DeleteFunc(out, func(a model.Article) bool { return a.Slug == slug })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ListStatic returns fallback articles, newest first.
func (s *ArticleService) ListStatic(ctx context.Context, limit int) []model.Article {
	if s.static == nil {
		return []model.Article{}
	}

	rows, err := s.static.LatestStatic(ctx, limit)
	if err != nil {
		s.log.Error().Err(err).Str("op", "ListStatic").Msg("store query failed")
		return []model.Article{}
	}

	out := normalize.All(s.norm, pointers(rows))
	sortNewest(out)
	return out
}

func (s *ArticleService) staticBySlug(ctx context.Context, slug string) *model.Article {
	if s.static == nil {
		return nil
	}

	row, err := s.static.StaticBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error().Err(err).Str("op", "GetBySlug").Str("slug", slug).Msg("store query failed")
		}
		return nil
	}

	a, ok := s.norm.Normalize(row)
	if !ok {
		return nil
	}
	return &a
}

func (s *ArticleService) listQuery(limit int) cms.Query {
	return cms.Query{
		Type:          postType,
		ExcludeDrafts: true,
		OrderBy:       orderField,
		Limit:         max(limit, 0),
		Projection:    listProjection,
	}
}

func (s *ArticleService) list(ctx context.Context, op string, q cms.Query, fresh cms.Freshness) []model.Article {
	var raws []json.RawMessage
	if err := s.fetcher.Fetch(ctx, q, fresh, &raws); err != nil {
		text, _ := q.GROQ()
		s.log.Error().Err(err).Str("op", op).Str("query", text).Msg("query failed")
		return []model.Article{}
	}

	out := make([]model.Article, 0, len(raws))
	for _, raw := range raws {
		if a, ok := s.decode(raw); ok {
			out = append(out, a)
		}
	}

	sortNewest(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// decode turns one raw document into a canonical article. Malformed records,
// drafts and records without a slug are skipped.
func (s *ArticleService) decode(raw json.RawMessage) (model.Article, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.Article{}, false
	}

	var src model.SourceArticle
	if err := json.Unmarshal(raw, &src); err != nil {
		s.log.Warn().Err(err).Msg("skipping malformed article")
		return model.Article{}, false
	}
	if strings.HasPrefix(src.ID, draftsPrefix) {
		return model.Article{}, false
	}

	a, ok := s.norm.Normalize(&src)
	if !ok {
		s.log.Warn().Str("id", src.ID).Msg("skipping article without slug")
	}
	return a, ok
}

func (s *ArticleService) freshness(f cms.Freshness) cms.Freshness {
	if f == (cms.Freshness{}) {
		return s.fresh
	}
	return f
}

func sortNewest(articles []model.Article) {
	slices.SortStableFunc(articles, func(a, b model.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

func pointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
