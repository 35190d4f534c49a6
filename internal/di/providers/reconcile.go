package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/config"
	"github.com/reelkeeperapp/reelkeeper-server/internal/files"
	"github.com/reelkeeperapp/reelkeeper-server/internal/logger"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/metadata/invidious"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconnect"
)

// ProvideFilesManager provides the local file capability rooted at the
// library path.
func ProvideFilesManager(i do.Injector) (*files.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return files.New(cfg.Reconcile.LibraryPath, log.Logger), nil
}

// ProvideMatchFinder provides the fuzzy matcher over the remote index.
func ProvideMatchFinder(i do.Injector) (*match.Finder, error) {
	searcher := do.MustInvoke[*invidious.Searcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return match.NewFinder(searcher, log.Logger), nil
}

// ProvideReconnectFinder provides the missing-file reconnection matcher.
func ProvideReconnectFinder(i do.Injector) (*reconnect.Finder, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return reconnect.NewFinder(log.Logger), nil
}

// ProvideReconcileService provides the reconciliation pipeline.
func ProvideReconcileService(i do.Injector) (*reconcile.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	finder := do.MustInvoke[*match.Finder](i)
	reconnectFinder := do.MustInvoke[*reconnect.Finder](i)
	fileManager := do.MustInvoke[*files.Manager](i)

	svc := reconcile.NewService(
		storeHandle.Store,
		finder,
		reconnectFinder,
		fileManager,
		sseHandle.Manager,
		log.Logger,
		reconcile.Options{
			ItemTimeout: cfg.Reconcile.ItemTimeout,
			AllowRename: cfg.Reconcile.AllowRename,
		},
	)

	log.Info("Reconcile service initialized",
		"item_timeout", cfg.Reconcile.ItemTimeout,
		"allow_rename", cfg.Reconcile.AllowRename,
	)

	return svc, nil
}

// ResumePendingSession picks up a session that was interrupted by a crash
// or restart. Should be called once after the container is bootstrapped.
func ResumePendingSession(i do.Injector) {
	svc := do.MustInvoke[*reconcile.Service](i)
	log := do.MustInvoke[*logger.Logger](i)

	sessionID, err := svc.ResumePending(context.Background())
	if err != nil {
		log.Error("Failed to resume pending session", "error", err)
		return
	}
	if sessionID != "" {
		log.Info("Resumed interrupted reconciliation session", "session_id", sessionID)
	}
}
