package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// InitializeSchedules starts all the cron jobs (currently just the
// scratch sweeper)
func (sh *ServerHandler) InitializeSchedules() *cron.Cron {
	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { sh.sweepScratchJob() })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", sh.ServerConfig.SweepInterval), sweepJob)
	Logger.Info("Adding scratch sweeper scheduler", "interval_minutes", sh.ServerConfig.SweepInterval)
	c.Start()
	return c
}

// sweepScratchJob removes per-invocation scratch directories older
// than the configured TTL. The framework owns artifact lifetimes only
// until the result is returned; anything left after the TTL is trash.
func (sh *ServerHandler) sweepScratchJob() {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in scratch sweeper", "panic", r)
		}
	}()

	cutoff := time.Now().Add(-sh.ServerConfig.ScratchTTL)
	entries, err := os.ReadDir(sh.ServerConfig.ScratchPath)
	if err != nil {
		Logger.Error("Error reading scratch directory", "path", sh.ServerConfig.ScratchPath, "error", err)
		return
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			Logger.Warn("Unable to stat scratch entry, skipping", "name", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		fullPath := filepath.Join(sh.ServerConfig.ScratchPath, entry.Name())
		if err := os.RemoveAll(fullPath); err != nil {
			Logger.Warn("Unable to remove expired scratch directory", "path", fullPath, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		Logger.Info("Scratch sweep complete", "removed", removed)
	}
}
