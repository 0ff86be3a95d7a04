package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dailycrypto/internal/cms"
	"dailycrypto/internal/model"
	"dailycrypto/internal/store"
)

const sampleSize = 5

type StatusService struct {
	fetcher cms.Fetcher
	info    cms.Info
	store   *store.Store
	log     zerolog.Logger
}

type SystemStatus struct {
	// content source
	TotalDocuments     int                  `json:"total_documents"`
	PublishedDocuments int                  `json:"published_documents"`
	DraftDocuments     int                  `json:"draft_documents"`
	SampleDocuments    []model.DocumentInfo `json:"sample_documents"`
	CMS                cms.Info             `json:"cms"`
	Error              string               `json:"error,omitempty"`

	// fallback store
	Store store.Stats `json:"store"`

	// scheduled jobs
	NextWarmTime  time.Time `json:"next_warm_time"`
	NextFetchTime time.Time `json:"next_fetch_time"`
}

// NewStatusService builds the diagnostics service. st may be nil.
func NewStatusService(fetcher cms.Fetcher, info cms.Info, st *store.Store, log zerolog.Logger) *StatusService {
	return &StatusService{
		fetcher: fetcher,
		info:    info,
		store:   st,
		log:     log.With().Str("component", "status").Logger(),
	}
}

// GetSystemStatus counts documents in the content source and rows in the
// fallback store. Content source failures are reported in Error rather than
// returned.
func (s *StatusService) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	status := &SystemStatus{
		CMS:             s.info,
		SampleDocuments: []model.DocumentInfo{},
	}

	var all, published []model.DocumentInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.fetcher.Fetch(gctx, cms.Query{
			Type:       postType,
			Projection: `{ _id, title, "isDraft": _id in path("drafts.**") }`,
		}, cms.NoStore(), &all)
	})
	g.Go(func() error {
		return s.fetcher.Fetch(gctx, cms.Query{
			Type:          postType,
			ExcludeDrafts: true,
			Projection:    `{ _id, title }`,
		}, cms.NoStore(), &published)
	})

	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("failed to count documents")
		status.Error = err.Error()
	} else {
		status.TotalDocuments = len(all)
		status.PublishedDocuments = len(published)
		status.DraftDocuments = len(all) - len(published)
		status.SampleDocuments = append(status.SampleDocuments, all[:min(len(all), sampleSize)]...)
	}

	if s.store != nil {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			return nil, err
		}
		status.Store = stats
	}

	return status, nil
}
