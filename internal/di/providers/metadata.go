package providers

import (
	"github.com/samber/do/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/config"
	"github.com/reelkeeperapp/reelkeeper-server/internal/logger"
	"github.com/reelkeeperapp/reelkeeper-server/internal/metadata/invidious"
)

// InvidiousClientHandle wraps the Invidious client with shutdown capability.
type InvidiousClientHandle struct {
	*invidious.Client
}

// Shutdown implements do.Shutdownable.
func (h *InvidiousClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideInvidiousClient provides the remote metadata search client.
func ProvideInvidiousClient(i do.Injector) (*InvidiousClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := invidious.New(
		cfg.Search.BaseURL,
		cfg.Search.Timeout,
		cfg.Search.RequestsPerSecond,
		log.Logger,
	)
	if err != nil {
		return nil, err
	}

	log.Info("Metadata search client initialized",
		"base_url", cfg.Search.BaseURL,
		"requests_per_second", cfg.Search.RequestsPerSecond,
	)

	return &InvidiousClientHandle{Client: client}, nil
}

// ProvideMetadataSearcher adapts the Invidious client to the match finder.
func ProvideMetadataSearcher(i do.Injector) (*invidious.Searcher, error) {
	clientHandle := do.MustInvoke[*InvidiousClientHandle](i)
	return invidious.NewSearcher(clientHandle.Client), nil
}
