// Package normalize maps every article shape onto model.Article.
//
// Each field is resolved independently and the first matching rule wins.
// Records without a usable slug are rejected; every other gap is filled with
// a literal fallback so templates never need to check for missing data.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"dailycrypto/internal/model"
)

const (
	UnknownAuthor   = "Unknown"
	DefaultCategory = "News"
)

// ImageResolver turns an asset reference into a URL. Zero sizes mean original size.
type ImageResolver interface {
	URL(ref string, w, h int) (string, error)
}

type Normalizer struct {
	images        ImageResolver
	fallbackImage string
}

func New(images ImageResolver, fallbackImage string) *Normalizer {
	return &Normalizer{images: images, fallbackImage: fallbackImage}
}

// Normalize converts rec to the canonical shape. ok is false when the record
// has no resolvable slug and must be skipped.
func (n *Normalizer) Normalize(rec model.Record) (model.Article, bool) {
	switch r := rec.(type) {
	case model.Article:
		return n.finish(r)
	case *model.SourceArticle:
		if r == nil {
			return model.Article{}, false
		}
		return n.fromSource(r)
	case *model.StaticArticle:
		if r == nil {
			return model.Article{}, false
		}
		return n.fromStatic(r)
	default:
		return model.Article{}, false
	}
}

// All normalizes recs in order, dropping the ones Normalize rejects.
func All[T model.Record](n *Normalizer, recs []T) []model.Article {
	out := make([]model.Article, 0, len(recs))
	for _, rec := range recs {
		if a, ok := n.Normalize(rec); ok {
			out = append(out, a)
		}
	}
	return out
}

func (n *Normalizer) fromSource(r *model.SourceArticle) (model.Article, bool) {
	a := model.Article{
		ID:          r.ID,
		Slug:        Slug(r.Slug),
		Title:       strings.TrimSpace(r.Title),
		Excerpt:     Summary(r.Excerpt, r.Description, r.Summary),
		Content:     r.Content,
		CoverImage:  n.Image(r.CoverImage, n.fallbackImage),
		Category:    Category(r.Category),
		Tags:        r.Tags,
		Tickers:     r.Tickers,
		PublishedAt: parseTime(r.DatePublished),
		ReadingTime: ReadingTime(r.ReadingTime),
		Featured:    r.Featured,
		Premium:     r.Premium,
		Exclusive:   r.Exclusive,
	}

	if r.Author != nil {
		a.Author = model.Author{
			Name:   strings.TrimSpace(r.Author.Name),
			Bio:    r.Author.Bio,
			Avatar: n.Image(r.Author.Avatar, ""),
		}
	}
	if t := parseTime(r.DateModified); !t.IsZero() {
		a.ModifiedAt = &t
	}
	if r.SEO != nil {
		a.SEO = &model.SEO{
			MetaTitle:       r.SEO.MetaTitle,
			MetaDescription: r.SEO.MetaDescription,
			Keywords:        keywords(r.SEO.Keywords),
		}
	}

	return n.finish(a)
}

func (n *Normalizer) fromStatic(r *model.StaticArticle) (model.Article, bool) {
	a := model.Article{
		ID:          "static-" + strconv.FormatUint(uint64(r.ID), 10),
		Slug:        strings.TrimSpace(r.Slug),
		Title:       strings.TrimSpace(r.Title),
		Excerpt:     Summary("", "", r.Blurb),
		Content:     textDocument(r.Body),
		CoverImage:  n.imageString(r.CoverImage, n.fallbackImage),
		Author:      model.Author{Name: strings.TrimSpace(r.AuthorName)},
		Category:    r.Category,
		Tags:        r.Tags,
		PublishedAt: r.PubDate,
		Featured:    r.Featured,
		Static:      true,
		SourceURL:   strings.TrimSpace(r.Link),
	}
	if r.ReadingTime > 0 {
		a.ReadingTime = r.ReadingTime
	}
	return n.finish(a)
}

// textDocument turns blank-line separated plain text into paragraph blocks.
func textDocument(body string) model.Document {
	var doc model.Document
	for _, p := range strings.Split(body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			doc = append(doc, model.Block{
				Type:     "block",
				Style:    "normal",
				Children: []model.Span{{Type: "span", Text: p}},
			})
		}
	}
	return doc
}

// finish applies the invariants every canonical record must satisfy. It is
// idempotent: finishing an already finished record changes nothing.
func (n *Normalizer) finish(a model.Article) (model.Article, bool) {
	if a.Slug == "" {
		return model.Article{}, false
	}
	if a.CoverImage == "" {
		a.CoverImage = n.fallbackImage
	}
	if a.Author.Name == "" {
		a.Author.Name = UnknownAuthor
	}
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.ReadingTime < 0 {
		a.ReadingTime = 0
	}
	return a, true
}

// Slug accepts a bare string or an object carrying "current".
func Slug(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Current)
	}
	return ""
}

// Summary returns the first non-blank candidate: excerpt, description, blurb.
func Summary(candidates ...string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

// Category accepts a resolved name only. Unresolved references yield "".
func Category(raw json.RawMessage) string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// ReadingTime reads minutes from a number or from the leading integer of a
// string such as "5 min". Anything else is 0 (unknown).
func ReadingTime(raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || f <= 0 || f > math.MaxInt32 {
			return 0
		}
		return int(math.Round(f))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// Image resolves a cover or avatar value to a URL.
//
// Direct URLs and objects exposing secure_url/url are used verbatim; asset
// references go through the resolver. fallback is returned when nothing
// resolves.
func (n *Normalizer) Image(raw json.RawMessage, fallback string) string {
	if isNull(raw) {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return n.imageString(s, fallback)
	}

	var obj struct {
		SecureURL string       `json:"secure_url"`
		URL       string       `json:"url"`
		Ref       string       `json:"_ref"`
		Asset     *model.Asset `json:"asset"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fallback
	}

	switch {
	case obj.SecureURL != "":
		return obj.SecureURL
	case obj.URL != "":
		return obj.URL
	case obj.Asset != nil && obj.Asset.URL != "":
		return obj.Asset.URL
	case obj.Asset != nil && obj.Asset.Ref != "":
		return n.resolve(obj.Asset.Ref, fallback)
	case obj.Asset != nil && obj.Asset.ID != "":
		return n.resolve(obj.Asset.ID, fallback)
	case obj.Ref != "":
		return n.resolve(obj.Ref, fallback)
	}
	return fallback
}

func (n *Normalizer) imageString(s, fallback string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return fallback
	case IsURL(s):
		return s
	default:
		return n.resolve(s, fallback)
	}
}

func (n *Normalizer) resolve(ref, fallback string) string {
	if n.images == nil {
		return fallback
	}
	u, err := n.images.URL(ref, 0, 0)
	if err != nil || u == "" {
		return fallback
	}
	return u
}

// IsURL reports whether s is already a usable image location.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "//") ||
		strings.HasPrefix(s, "/")
}

func keywords(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
