package model

import "time"

// StaticArticle is fallback content imported from RSS feeds into sqlite.
type StaticArticle struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FeedID      uint      `gorm:"index;not null" json:"feed_id"`
	Feed        Feed      `gorm:"foreignKey:FeedID" json:"feed,omitempty"`
	Slug        string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title       string    `gorm:"size:500;not null" json:"title"`
	Link        string    `gorm:"size:500;uniqueIndex;not null" json:"link"`
	Blurb       string    `gorm:"type:text" json:"blurb"`
	Body        string    `gorm:"type:text" json:"body"`
	CoverImage  string    `gorm:"size:1000" json:"cover_image"`
	AuthorName  string    `gorm:"size:255" json:"author_name"`
	Category    string    `gorm:"size:100" json:"category"`
	Tags        []string  `gorm:"serializer:json" json:"tags"`
	PubDate     time.Time `gorm:"index" json:"pub_date"`
	ReadingTime int       `json:"reading_time"`
	Featured    bool      `gorm:"default:false" json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
}
