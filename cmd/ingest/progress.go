package main

import (
	"log/slog"

	"github.com/vanshika/ownergraph/backend/internal/service"
)

// progressLogger logs roughly every tenth of a batch.
func progressLogger(logger *slog.Logger) service.Progress {
	return func(done, total int) {
		step := total / 10
		if step == 0 {
			step = 1
		}
		if done%step == 0 || done == total {
			logger.Info("ingest progress", "done", done, "total", total)
		}
	}
}
