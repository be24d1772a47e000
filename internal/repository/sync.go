package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/injector"
	"github.com/cbout22/policygate/internal/manifest"
	"github.com/cbout22/policygate/internal/metrics"
	"github.com/cbout22/policygate/internal/resolver"
)

// Coordinator decides when to check upstream and serializes refresh episodes
// for one cache root. Readers of the cache root do not need its lock.
type Coordinator struct {
	mu        sync.Mutex
	lastCheck time.Time

	root     string
	loc      config.Location
	source   resolver.SourceRepository
	injector *injector.Injector
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.SyncMetrics
	logger   *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithMetrics records refresh activity.
func WithMetrics(m *metrics.SyncMetrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithInjector replaces the default materializer.
func WithInjector(inj *injector.Injector) CoordinatorOption {
	return func(c *Coordinator) { c.injector = inj }
}

// NewCoordinator creates a Coordinator for the cache root at root.
// Intervals below one second are raised to one second.
func NewCoordinator(root string, loc config.Location, source resolver.SourceRepository, interval time.Duration, opts ...CoordinatorOption) *Coordinator {
	if interval < time.Second {
		interval = time.Second
	}
	c := &Coordinator{
		root:     root,
		loc:      loc,
		source:   source,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.logger
	c.logger = base.With("component", "sync", "repository", loc.FullName())
	if c.injector == nil {
		c.injector = injector.New(
			injector.WithPreserved(manifest.MetadataFile),
			injector.WithLogger(base),
		)
	}
	return c
}

// Root returns the cache root directory.
func (c *Coordinator) Root() string { return c.root }

// Location returns the upstream repository.
func (c *Coordinator) Location() config.Location { return c.loc }

// MetadataPath returns the path of the sync metadata record.
func (c *Coordinator) MetadataPath() string {
	return filepath.Join(c.root, manifest.MetadataFile)
}

// Metadata reads the stored sync metadata; nil means never synced.
func (c *Coordinator) Metadata() (*manifest.SyncMetadata, error) {
	return manifest.LoadMetadata(c.MetadataPath())
}

// RefreshIfNeeded checks upstream unless the cache root exists and the last
// check happened less than the interval ago. A missing root forces a sync;
// otherwise the archive is only downloaded when the upstream sha changed.
// The check time is recorded before the episode runs, so failures are throttled too.
//
// The episode is shared by every caller queued on the lock, so canceling ctx
// does not abort it; the fetcher's own timeouts bound it instead.
func (c *Coordinator) RefreshIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	exists := c.rootExists()
	if exists && !c.lastCheck.IsZero() && now.Sub(c.lastCheck) < c.interval {
		c.metrics.RecordCheck(metrics.ResultThrottled)
		c.logger.Debug("refresh check throttled", "last_check", c.lastCheck)
		return nil
	}

	c.lastCheck = now
	return c.refresh(context.WithoutCancel(ctx), !exists)
}

// ForceRefresh downloads and materializes the current upstream snapshot
// regardless of the interval and the stored sha. The check time is only
// reset when the episode succeeds.
func (c *Coordinator) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refresh(context.WithoutCancel(ctx), true); err != nil {
		return err
	}
	c.lastCheck = c.now()
	return nil
}

// Drift compares the stored sha with upstream without downloading anything.
type Drift struct {
	Stored   *manifest.SyncMetadata // nil when never synced
	Upstream resolver.State
}

// InSync reports whether the cache holds the upstream tip.
func (d Drift) InSync() bool {
	return d.Stored != nil && d.Stored.SHA == d.Upstream.SHA
}

// CheckDrift fetches the upstream state and pairs it with the stored metadata.
func (c *Coordinator) CheckDrift(ctx context.Context) (Drift, error) {
	state, err := c.source.RepositoryState(ctx, c.loc)
	if err != nil {
		return Drift{}, syncErr(StageState, err)
	}
	return Drift{Stored: c.storedMetadata(), Upstream: state}, nil
}

func (c *Coordinator) refresh(ctx context.Context, force bool) error {
	result, err := c.episode(ctx, force)
	if err != nil {
		c.metrics.RecordCheck(metrics.ResultFailed)
		var se *SyncError
		stage := ""
		if errors.As(err, &se) {
			stage = se.Stage
		}
		c.logger.Error("repository refresh failed", "stage", stage, "force", force, "error", err)
		return err
	}
	c.metrics.RecordCheck(result)
	return nil
}

// episode runs one refresh: state, identity check, download, materialize,
// then metadata. Metadata is written last so it never names content that
// is not fully on disk.
func (c *Coordinator) episode(ctx context.Context, force bool) (string, error) {
	state, err := c.source.RepositoryState(ctx, c.loc)
	if err != nil {
		return "", syncErr(StageState, err)
	}

	if !force {
		if stored := c.storedMetadata(); stored != nil && stored.SHA == state.SHA {
			c.logger.Info("repository unchanged", "sha", state.SHA)
			return metrics.ResultUnchanged, nil
		}
	}

	start := c.now()

	archive, err := c.source.Download(ctx, state.ArchiveURL)
	if err != nil {
		return "", syncErr(StageDownload, err)
	}

	staged, err := c.injector.Stage(ctx, archive)
	if err != nil {
		return "", syncErr(StageMaterialize, err)
	}
	defer staged.Close()

	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", syncErr(StageMaterialize, err)
	}
	if err := staged.Commit(osfs.New(c.root)); err != nil {
		return "", syncErr(StageMaterialize, err)
	}

	finished := c.now()
	md := manifest.SyncMetadata{
		Repository:    c.loc.FullName(),
		DefaultBranch: state.DefaultBranch,
		SHA:           state.SHA,
		SyncedAt:      finished.Unix(),
	}
	if err := md.Save(c.MetadataPath()); err != nil {
		return "", syncErr(StageMetadata, err)
	}

	c.metrics.RecordSync(finished.Sub(start), finished)
	c.logger.Info("repository synced",
		"sha", state.SHA,
		"branch", state.DefaultBranch,
		"entries", staged.Entries(),
		"duration", finished.Sub(start),
	)
	return metrics.ResultSynced, nil
}

// storedMetadata returns nil when the record is missing or unreadable.
func (c *Coordinator) storedMetadata() *manifest.SyncMetadata {
	md, err := c.Metadata()
	if err != nil {
		c.logger.Warn("ignoring unreadable sync metadata", "path", c.MetadataPath(), "error", err)
		return nil
	}
	return md
}

func (c *Coordinator) rootExists() bool {
	info, err := os.Stat(c.root)
	return err == nil && info.IsDir()
}
