package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dailycrypto/config"
	"dailycrypto/internal/cms"
	"dailycrypto/internal/model"
	"dailycrypto/internal/service"
)

const (
	warmConcurrency = 4
	jobTimeout      = 5 * time.Minute
)

// ArticleWarmer is the part of the article service the warm job needs.
type ArticleWarmer interface {
	AllSlugs(ctx context.Context, fresh cms.Freshness) []string
	GetBySlug(ctx context.Context, slug string, fresh cms.Freshness) *model.Article
	ListPublished(ctx context.Context, opts service.ListOptions) []model.Article
	ListFeatured(ctx context.Context, opts service.ListOptions) []model.Article
}

// FeedImporter imports fallback feeds.
type FeedImporter interface {
	FetchAllFeeds(ctx context.Context) error
}

type Scheduler struct {
	cron         *cron.Cron
	articles     ArticleWarmer
	feed         FeedImporter
	config       config.CronConfig
	revalidate   time.Duration
	warmEntryID  cron.EntryID
	fetchEntryID cron.EntryID
	log          zerolog.Logger
}

// NewScheduler builds the scheduler. feed may be nil when no fallback store is configured.
func NewScheduler(articles ArticleWarmer, feed FeedImporter, cfg config.CronConfig, revalidate time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		articles:   articles,
		feed:       feed,
		config:     cfg,
		revalidate: revalidate,
		log:        log.With().Str("component", "cron").Logger(),
	}
}

// Start registers the jobs with a non-empty interval and starts the cron runner.
func (s *Scheduler) Start() error {
	if s.config.WarmInterval != "" && s.revalidate > 0 {
		id, err := s.cron.AddFunc(s.config.WarmInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			s.Warm(ctx)
		})
		if err != nil {
			return err
		}
		s.warmEntryID = id
	}

	if s.config.FeedInterval != "" && s.feed != nil {
		id, err := s.cron.AddFunc(s.config.FeedInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			s.log.Info().Msg("fetching feeds")
			if err := s.feed.FetchAllFeeds(ctx); err != nil {
				s.log.Error().Err(err).Msg("feed import finished with errors")
			}
		})
		if err != nil {
			return err
		}
		s.fetchEntryID = id
	}

	s.cron.Start()
	s.log.Info().
		Str("warm", s.config.WarmInterval).
		Str("fetch", s.config.FeedInterval).
		Msg("scheduler started")
	return nil
}

// Warm refetches the list pages and every published article with the
// revalidate freshness so page requests are served from the cache. It
// returns the number of articles fetched.
func (s *Scheduler) Warm(ctx context.Context) int {
	fresh := cms.Revalidate(s.revalidate)
	start := time.Now()

	s.articles.ListPublished(ctx, service.ListOptions{Freshness: fresh})
	s.articles.ListFeatured(ctx, service.ListOptions{Freshness: fresh})

	slugs := s.articles.AllSlugs(ctx, cms.NoStore())

	var (
		g     errgroup.Group
		found = make([]bool, len(slugs))
	)
	g.SetLimit(warmConcurrency)
	for i, slug := range slugs {
		g.Go(func() error {
			found[i] = s.articles.GetBySlug(ctx, slug, fresh) != nil
			return nil
		})
	}
	_ = g.Wait()

	var n int
	for _, ok := range found {
		if ok {
			n++
		}
	}

	s.log.Info().Int("slugs", len(slugs)).Int("warmed", n).Dur("took", time.Since(start)).Msg("pages warmed")
	return n
}

// GetNextWarmTime returns the next warm run, zero if the job is not scheduled.
func (s *Scheduler) GetNextWarmTime() time.Time {
	if s.warmEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.warmEntryID).Next
}

// GetNextFetchTime returns the next feed import, zero if the job is not scheduled.
func (s *Scheduler) GetNextFetchTime() time.Time {
	if s.fetchEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.fetchEntryID).Next
}

// Stop stops the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
