package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dailycrypto/config"
	"dailycrypto/internal/cache"
	"dailycrypto/internal/cms"
	"dailycrypto/internal/handler"
	"dailycrypto/internal/imageurl"
	"dailycrypto/internal/logger"
	"dailycrypto/internal/middleware"
	"dailycrypto/internal/normalize"
	"dailycrypto/internal/render"
	"dailycrypto/internal/scheduler"
	"dailycrypto/internal/service"
	"dailycrypto/internal/store"
	"dailycrypto/web"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Server.Mode == gin.DebugMode)
	gin.SetMode(cfg.Server.Mode)

	// fallback store
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer st.Close()

	// response cache, optional
	var responses cms.Cache
	if cfg.Cache.Enabled {
		rc := cache.NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Connect(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.Addr).Msg("redis unavailable, continuing without cache")
			_ = rc.Close()
		} else {
			responses = rc
			defer rc.Close()
		}
		cancel()
	}

	images := imageurl.NewBuilder(cfg.CMS.ProjectID, cfg.CMS.Dataset)
	client := cms.NewClient(cmsConfig(cfg.CMS), responses, log)
	fresh := defaultFreshness(cfg.CMS.Revalidate)

	articleSvc := service.NewArticleService(client, normalize.New(images, cfg.Site.FallbackImage), st, fresh, log)
	feedSvc := service.NewFeedService(st, log)
	statusSvc := service.NewStatusService(client, client.Info(), st, log)

	sched := scheduler.NewScheduler(articleSvc, feedSvc, cfg.Cron, cfg.CMS.Revalidate, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	h := handler.NewHandler(handler.Deps{
		Articles: articleSvc,
		Feeds:    feedSvc,
		Status:   statusSvc,
		Store:    st,
		Renderer: render.New(images),
		Images:   images,
		Site:     cfg.Site,
		Log:      log,
	})
	h.SetScheduler(sched)

	tmpl, err := h.Templates()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse templates")
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), middleware.Recovery(log))
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("project", cfg.CMS.ProjectID).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(srv, log)
}

func cmsConfig(c config.CMSConfig) cms.Config {
	return cms.Config{
		ProjectID:   c.ProjectID,
		Dataset:     c.Dataset,
		APIVersion:  c.APIVersion,
		Token:       c.Token,
		Perspective: c.Perspective,
		UseCDN:      c.UseCDN,
		APIHost:     c.APIHost,
		CDNHost:     c.CDNHost,
		Timeout:     c.Timeout,
	}
}

// defaultFreshness is the freshness used when a caller does not ask for one.
// A zero revalidate window disables caching.
func defaultFreshness(revalidate time.Duration) cms.Freshness {
	if revalidate > 0 {
		return cms.Revalidate(revalidate)
	}
	return cms.NoStore()
}

func waitForShutdown(srv *http.Server, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
