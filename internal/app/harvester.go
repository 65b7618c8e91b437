// Package app wires configuration, the GNews client, and the collector into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/gnews-go/internal/collector"
	"github.com/samvad-hq/gnews-go/internal/config"
	"github.com/samvad-hq/gnews-go/internal/feeds"
	"github.com/samvad-hq/gnews-go/internal/logger"
	"github.com/samvad-hq/gnews-go/internal/metrics"
	"github.com/samvad-hq/gnews-go/internal/storage"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/httpclient"
	"github.com/samvad-hq/gnews-go/pkg/publishers"
)

const (
	pageFetchTimeout      = 10 * time.Second
	metricsShutdownWindow = 5 * time.Second
)

// Harvester represents the polling runtime. It manages the poll loop,
// coordinating between feeds, the collector service, and publishers. It also
// handles storage initialization and cleanup.
type Harvester struct {
	cfg          *config.Config
	feedReg      *feeds.Registry
	fanout       *publishers.Fanout
	service      *collector.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
	metrics      *metrics.Metrics
	metricsSrv   *http.Server
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	m := metrics.New(prometheus.NewRegistry())

	client, err := gnews.New(cfg.APIKey, gnews.Options{
		APIVersion: cfg.APIVersion,
		MaxWait:    cfg.MaxWait,
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpclient.NewRestyClient(httpclient.Options{
			UserAgent: cfg.AppName,
			Tracing:   cfg.HTTPTracing,
		}),
		Logger:   log,
		Observer: m,
	})
	if err != nil {
		return nil, fmt.Errorf("init gnews client: %w", err)
	}

	feedReg, err := feeds.LoadRegistry(cfg.FeedsFile)
	if err != nil {
		return nil, fmt.Errorf("load feeds registry: %w", err)
	}
	feedList := feedReg.All()
	feedIDs := make([]string, 0, len(feedList))
	for _, f := range feedList {
		feedIDs = append(feedIDs, f.ID)
	}
	log.InfoObj("feeds registry loaded", "feeds_meta", map[string]any{
		"count": len(feedIDs),
		"ids":   feedIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		ArticleTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), fanout.Close())
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"article_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	enricher := collector.NewEnricher(httpclient.NewRestyClient(httpclient.Options{
		Timeout:   pageFetchTimeout,
		UserAgent: cfg.AppName,
		Tracing:   cfg.HTTPTracing,
	}), log)

	service, err := collector.NewService(collector.Options{
		Fetchers:    feeds.DefaultFetcherRegistry(client),
		Enricher:    enricher,
		Publisher:   fanout,
		Store:       store,
		Recorder:    m,
		Logger:      log,
		Concurrency: cfg.FeedConcurrency,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close(), fanout.Close())
	}

	h := &Harvester{
		cfg:          cfg,
		feedReg:      feedReg,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
		metrics:      m,
	}
	if cfg.MetricsAddr != "" {
		h.metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return h, nil
}

// Run starts the poll loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.service == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()
	h.serveMetrics()

	feedList := h.feedReg.All()
	if len(feedList) == 0 {
		h.log.WarnObj("no feeds configured; harvester idle", "feeds_file", h.cfg.FeedsFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"feeds_count":      len(feedList),
		"publishers_count": h.fanout.Size(),
		"poll_interval":    h.pollInterval.String(),
	})

	if err := h.runOnce(ctx, feedList); err != nil {
		h.log.ErrorObj("initial poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx, feedList); err != nil {
				h.log.ErrorObj("scheduled poll failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single poll across all feeds.
func (h *Harvester) runOnce(ctx context.Context, feedList []feeds.Feed) error {
	start := time.Now()
	h.log.InfoObj("poll started", "poll_meta", map[string]any{
		"feeds_count": len(feedList),
		"started_at":  start.UTC(),
	})
	if err := h.service.Run(ctx, feedList); err != nil {
		return err
	}
	h.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"feeds_count": len(feedList),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}

func (h *Harvester) serveMetrics() {
	if h.metricsSrv == nil {
		return
	}
	go func() {
		h.log.InfoObj("metrics server listening", "metrics_addr", h.metricsSrv.Addr)
		if err := h.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.ErrorObj("metrics server failed", "error", err.Error())
		}
	}()
}

// close stops the metrics server and releases storage and publishers, logging any errors.
func (h *Harvester) close() {
	if h.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownWindow)
		defer cancel()
		if err := h.metricsSrv.Shutdown(ctx); err != nil {
			h.log.ErrorObj("metrics server shutdown failed", "error", err.Error())
		}
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
