package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/lettergraph"
	loamAdapter "github.com/aretw0/lettergraph/pkg/adapters/loam"
)

// WatchContent follows changes of a loam content directory until ctx is done.
// The repository rebuilds its variant index on the next lookup; onChange, if
// set, runs for every changed document id. Engines without a loam content
// repository are not watched.
func WatchContent(ctx context.Context, eng *lettergraph.Engine, logger *slog.Logger, onChange func(id string)) error {
	repo, ok := eng.Content().(*loamAdapter.Repository)
	if !ok {
		return nil
	}
	events, err := repo.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching content for changes")
	go func() {
		for id := range events {
			logger.Info("content changed", "content_id", id)
			if onChange != nil {
				onChange(id)
			}
		}
	}()
	return nil
}
