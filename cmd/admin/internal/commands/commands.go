package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/onboard/internal/backend"
	"github.com/wolfeidau/onboard/internal/logger"
	"github.com/wolfeidau/onboard/internal/store"
)

type Globals struct {
	Debug   bool
	Version string
	Store   backend.Flags
}

// open attaches a console logger to ctx and opens the configured store.
func (g *Globals) open(ctx context.Context) (context.Context, store.Store, func(), error) {
	log := logger.Setup(true)
	if !g.Debug {
		log = log.Level(zerolog.InfoLevel)
	}
	ctx = log.WithContext(ctx)

	st, closeFn, err := g.Store.Open(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, st, closeFn, nil
}
