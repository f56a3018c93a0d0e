package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"cutagent/internal/config"
	"cutagent/internal/logging"
	"cutagent/internal/store"
	"cutagent/internal/toolchain"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the collaborators a command needs. store is nil when the
// database is disabled or could not be opened.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	tools  *toolchain.Toolchain
}

// historyEnabled reports whether executions should be recorded.
func (rt *runtime) historyEnabled() bool {
	return rt.store != nil && rt.cfg.Store.History
}

// withRuntime builds a runtime for the duration of fn and releases it after.
func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	if cfg.Store.Enabled {
		st, err := store.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "state store unavailable", "store_open",
				logging.Error(err),
				logging.String(logging.FieldImpact, "probe cache and run history are disabled for this command"),
				logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"))
		} else {
			rt.store = st
			defer st.Close()
			pruneProbeCache(context.Background(), st, cfg, time.Now(), logger)
		}
	}
	rt.tools = toolchain.New(cfg, rt.store, logger)
	return fn(rt)
}

// pruneProbeCache drops probe cache entries older than store.probe_cache_days.
// Failures are logged, not returned.
func pruneProbeCache(ctx context.Context, st *store.Store, cfg *config.Config, now time.Time, logger *slog.Logger) {
	days := cfg.Store.ProbeCacheDays
	if !cfg.Store.ProbeCache || days <= 0 {
		return
	}
	if err := st.PruneProbes(ctx, now.AddDate(0, 0, -days)); err != nil {
		logging.WarnWithContext(logger, "probe cache prune failed", "probe_cache_prune",
			logging.Error(err),
			logging.Int("retention_days", days))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
