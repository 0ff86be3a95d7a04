// Package store persists feeds and the static fallback articles imported from them.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dailycrypto/internal/model"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path and migrates it.
func Open(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return New(db)
}

// New wraps db and runs migrations.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model.Feed{}, &model.StaticArticle{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ===== Feeds =====

func (s *Store) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []model.Feed
	err := s.db.WithContext(ctx).Order("id").Find(&feeds).Error
	return feeds, err
}

func (s *Store) EnabledFeeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []model.Feed
	err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&feeds).Error
	return feeds, err
}

func (s *Store) GetFeed(ctx context.Context, id uint) (*model.Feed, error) {
	var feed model.Feed
	err := s.db.WithContext(ctx).First(&feed, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *Store) CreateFeed(ctx context.Context, feed *model.Feed) error {
	return s.db.WithContext(ctx).Create(feed).Error
}

// DeleteFeed removes a feed together with the articles imported from it.
func (s *Store) DeleteFeed(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed_id = ?", id).Delete(&model.StaticArticle{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Feed{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ===== Static articles =====

// SaveStaticArticle inserts the article unless one with the same link exists.
// It reports whether a row was created.
func (s *Store) SaveStaticArticle(ctx context.Context, article *model.StaticArticle) (bool, error) {
	res := s.db.WithContext(ctx).Where("link = ?", article.Link).FirstOrCreate(article)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.StaticArticle{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// LatestStatic returns fallback articles newest first. limit <= 0 means all.
func (s *Store) LatestStatic(ctx context.Context, limit int) ([]model.StaticArticle, error) {
	q := s.db.WithContext(ctx).Order("pub_date DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var articles []model.StaticArticle
	err := q.Find(&articles).Error
	return articles, err
}

func (s *Store) StaticBySlug(ctx context.Context, slug string) (*model.StaticArticle, error) {
	var article model.StaticArticle
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// Stats counts stored rows for the status endpoint.
type Stats struct {
	TotalFeeds     int64 `json:"total_feeds"`
	EnabledFeeds   int64 `json:"enabled_feeds"`
	StaticArticles int64 `json:"static_articles"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Feed{}).Count(&st.TotalFeeds).Error; err != nil {
		return st, err
	}
	if err := db.Model(&model.Feed{}).Where("enabled = ?", true).Count(&st.EnabledFeeds).Error; err != nil {
		return st, err
	}
	if err := db.Model(&model.StaticArticle{}).Count(&st.StaticArticles).Error; err != nil {
		return st, err
	}
	return st, nil
}
