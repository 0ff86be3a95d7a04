package model

import "time"

type Feed struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	URL       string    `gorm:"size:500;uniqueIndex;not null" json:"url" binding:"required,url"`
	Category  string    `gorm:"size:100" json:"category"`
	Featured  bool      `gorm:"default:false" json:"featured"` // mark imported articles as featured
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
