package model

import "time"

// Article is the canonical record. Pages and templates only ever see this shape.
type Article struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Content     Document   `json:"content,omitempty"`
	CoverImage  string     `json:"coverImage"`
	Author      Author     `json:"author"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Tickers     []string   `json:"tickers,omitempty"`
	PublishedAt time.Time  `json:"publishedAt"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
	ReadingTime int        `json:"readingTime,omitempty"` // minutes, 0 = unknown
	Featured    bool       `json:"featured"`
	Premium     bool       `json:"premium"`
	Exclusive   bool       `json:"exclusive"`
	SEO         *SEO       `json:"seo,omitempty"`
	Static      bool       `json:"static,omitempty"` // built from fallback content
	SourceURL   string     `json:"sourceUrl,omitempty"`
}

type Author struct {
	Name   string `json:"name"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Record is any article shape accepted by the normalizer.
type Record interface {
	record()
}

func (Article) record()        {}
func (*SourceArticle) record() {}
func (*StaticArticle) record() {}
