package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"dailycrypto/internal/model"
	"dailycrypto/internal/store"
)

const blurbLength = 280

// FeedService imports RSS/Atom items as static fallback articles.
type FeedService struct {
	store  *store.Store
	parser *gofeed.Parser
	log    zerolog.Logger
	now    func() time.Time
}

func NewFeedService(st *store.Store, log zerolog.Logger) *FeedService {
	return &FeedService{
		store:  st,
		parser: gofeed.NewParser(),
		log:    log.With().Str("component", "feeds").Logger(),
		now:    time.Now,
	}
}

// FetchFeed imports one feed and returns the number of new articles.
func (s *FeedService) FetchFeed(ctx context.Context, feed *model.Feed) (int, error) {
	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed %s: %w", feed.URL, err)
	}

	var count int
	for _, item := range parsed.Items {
		article, ok := s.toArticle(feed, item)
		if !ok {
			continue
		}

		slug, err := s.uniqueSlug(ctx, article.Slug)
		if err != nil {
			return count, err
		}
		article.Slug = slug

		created, err := s.store.SaveStaticArticle(ctx, article)
		if err != nil {
			return count, fmt.Errorf("failed to save %s: %w", article.Link, err)
		}
		if created {
			count++
		}
	}

	s.log.Info().Str("feed", feed.Name).Int("items", len(parsed.Items)).Int("new", count).Msg("feed imported")
	return count, nil
}

// FetchAllFeeds imports every enabled feed. A failing feed does not stop the others.
func (s *FeedService) FetchAllFeeds(ctx context.Context) error {
	feeds, err := s.store.EnabledFeeds(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for i := range feeds {
		if _, err := s.FetchFeed(ctx, &feeds[i]); err != nil {
			s.log.Error().Err(err).Str("feed", feeds[i].Name).Msg("feed import failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FeedService) toArticle(feed *model.Feed, item *gofeed.Item) (*model.StaticArticle, bool) {
	title := plainText(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return nil, false
	}

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = body
	}
	text := strings.Join(paragraphs(body), "\n\n")

	slug := slugify(title)
	if slug == "" {
		slug = "article"
	}

	return &model.StaticArticle{
		FeedID:      feed.ID,
		Slug:        slug,
		Title:       title,
		Link:        link,
		Blurb:       truncate(plainText(summary), blurbLength),
		Body:        text,
		CoverImage:  coverImage(item, body),
		AuthorName:  authorName(item),
		Category:    feed.Category,
		Tags:        item.Categories,
		PubDate:     s.pubDate(item),
		ReadingTime: readingMinutes(text),
		Featured:    feed.Featured,
	}, true
}

// uniqueSlug appends -2, -3, ... until base is free.
func (s *FeedService) uniqueSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		exists, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}

func (s *FeedService) pubDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return s.now()
}

func coverImage(item *gofeed.Item, body string) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if src := firstImage(body); src != "" {
		return src
	}
	return firstImage(item.Description)
}

func authorName(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
