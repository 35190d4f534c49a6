// Package di provides dependency injection configuration for the ReelKeeper server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/config"
	"github.com/reelkeeperapp/reelkeeper-server/internal/di/providers"
	"github.com/reelkeeperapp/reelkeeper-server/internal/files"
	"github.com/reelkeeperapp/reelkeeper-server/internal/logger"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/metadata/invidious"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconnect"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Metadata layer
	do.Provide(injector, providers.ProvideInvidiousClient)
	do.Provide(injector, providers.ProvideMetadataSearcher)

	// Reconciliation pipeline
	do.Provide(injector, providers.ProvideFilesManager)
	do.Provide(injector, providers.ProvideMatchFinder)
	do.Provide(injector, providers.ProvideReconnectFinder)
	do.Provide(injector, providers.ProvideReconcileService)

	// Workers
	do.Provide(injector, providers.ProvideDropfolder)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.InvidiousClientHandle](injector)
	_ = do.MustInvoke[*invidious.Searcher](injector)
	_ = do.MustInvoke[*files.Manager](injector)
	_ = do.MustInvoke[*match.Finder](injector)
	_ = do.MustInvoke[*reconnect.Finder](injector)
	_ = do.MustInvoke[*reconcile.Service](injector)
	_ = do.MustInvoke[*providers.DropfolderHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index from the store if it came up empty.
	providers.TriggerSearchReindexIfNeeded(injector)

	// Pick up a session interrupted by a crash or restart.
	providers.ResumePendingSession(injector)

	return nil
}
