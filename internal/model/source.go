package model

import "encoding/json"

// SourceArticle is a newsPost document as returned by the content source.
// Polymorphic fields stay raw and are resolved by the normalizer.
type SourceArticle struct {
	ID            string          `json:"_id"`
	Title         string          `json:"title"`
	Slug          json.RawMessage `json:"slug"`
	Excerpt       string          `json:"excerpt"`
	Description   string          `json:"description"`
	Summary       string          `json:"summary"`
	Content       Document        `json:"content"`
	CoverImage    json.RawMessage `json:"coverImage"`
	Author        *SourceAuthor   `json:"author"`
	Category      json.RawMessage `json:"category"`
	Tags          []string        `json:"tags"`
	Tickers       []string        `json:"tickers"`
	DatePublished string          `json:"datePublished"`
	DateModified  string          `json:"dateModified"`
	ReadingTime   json.RawMessage `json:"readingTime"`
	Featured      bool            `json:"featured"`
	Premium       bool            `json:"premium"`
	Exclusive     bool            `json:"exclusive"`
	ContentType   string          `json:"contentType"`
	Impact        string          `json:"impact"`
	Language      string          `json:"language"`
	SEO           *SourceSEO      `json:"seo"`
}

type SourceAuthor struct {
	Name   string          `json:"name"`
	Bio    string          `json:"bio"`
	Avatar json.RawMessage `json:"avatar"`
}

type SourceSEO struct {
	MetaTitle       string          `json:"metaTitle"`
	MetaDescription string          `json:"metaDescription"`
	Keywords        json.RawMessage `json:"keywords"`
}

// DocumentInfo is the diagnostics projection used by the status endpoint.
type DocumentInfo struct {
	ID      string `json:"_id"`
	Title   string `json:"title"`
	IsDraft bool   `json:"isDraft"`
}
