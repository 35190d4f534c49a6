package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/config"
	"github.com/reelkeeperapp/reelkeeper-server/internal/logger"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
	"github.com/reelkeeperapp/reelkeeper-server/internal/watcher"
)

// DropfolderHandle wraps the dropfolder watcher and importer with
// lifecycle management. Watcher is nil when no watch path is configured.
type DropfolderHandle struct {
	Watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *DropfolderHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideDropfolder provides the dropfolder watcher feeding settled video
// files into the reconciliation pipeline.
func ProvideDropfolder(i do.Injector) (*DropfolderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.WatchPath == "" {
		log.Info("No watch path configured, dropfolder import disabled")
		return &DropfolderHandle{}, nil
	}

	svc := do.MustInvoke[*reconcile.Service](i)

	w, err := watcher.New(log.Logger, watcher.Options{
		SettleDelay: cfg.Import.SettleDelay,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Import.WatchPath); err != nil {
		return nil, err
	}

	importer := watcher.NewImporter(w, svc, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Dropfolder watcher error", "error", err)
		}
	}()
	go importer.Run(ctx)

	log.Info("Dropfolder watcher started",
		"path", cfg.Import.WatchPath,
		"settle_delay", cfg.Import.SettleDelay,
	)

	return &DropfolderHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
