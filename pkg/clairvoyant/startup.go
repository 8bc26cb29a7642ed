package clairvoyant

import (
	"os"
	"path/filepath"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/chagen/clairvoyant/internal/model"
	"golang.org/x/sync/errgroup"
)

// scanMetricDirectories implements §4.7's startup directory scan: every
// catalog entry's per-metric directory is checked concurrently, logging
// (never failing) any inconsistency. §4.2 already treats a missing
// directory as a non-error that gets recreated lazily on the next write, so
// this scan exists purely to surface a diagnostic, the way the teacher's
// ToCheckpoint/FromCheckpointFiles fan work for every cluster/host pair out
// across a fixed worker pool and collect errors for a single summary log
// line rather than aborting. errgroup.Group replaces the teacher's raw
// channel-plus-sync.WaitGroup plumbing because there is no per-item result
// to collect here, only first-error semantics for that summary.
func scanMetricDirectories(cfg Config, entries []model.MetricInfo) {
	if len(entries) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)

	for _, info := range entries {
		info := info
		g.Go(func() error {
			dir := filepath.Join(cfg.RootDir, info.Id.Group, info.Id.Id)
			fi, err := os.Stat(dir)
			switch {
			case err == nil && !fi.IsDir():
				cclog.Warnf("clairvoyant: startup scan: %s exists but is not a directory; opening this metric's writer will fail", dir)
			case os.IsNotExist(err):
				cclog.Infof("clairvoyant: startup scan: metric %s has no directory yet, will be created on next write", info.Id)
			case err != nil:
				cclog.Warnf("clairvoyant: startup scan: stat %s: %s", dir, err.Error())
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cclog.Warnf("clairvoyant: startup scan: %s", err.Error())
	}
}
