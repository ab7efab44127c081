// Command busd is the authoritative realtime backend for the Busfahrer
// drinking card game: a single process serving the HTTP command surface,
// the websocket subscription router, and the fan-out dispatcher that
// bridges them through the state store's change feed.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/busfahrer/server/internal/auth"
	"github.com/busfahrer/server/internal/chat"
	"github.com/busfahrer/server/internal/cleanup"
	"github.com/busfahrer/server/internal/config"
	"github.com/busfahrer/server/internal/fanout"
	"github.com/busfahrer/server/internal/friend"
	"github.com/busfahrer/server/internal/game"
	"github.com/busfahrer/server/internal/httpapi"
	"github.com/busfahrer/server/internal/lobby"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/server"
	"github.com/busfahrer/server/internal/store"
	"github.com/busfahrer/server/internal/uploads"
	"github.com/busfahrer/server/internal/wsapi"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}
	cobra.CheckErr(config.NewCmd(cfg, run).Execute())
}

func run(cmd *cobra.Command, args []string, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := registry.New()
	signer := auth.NewSigner(cfg.JWTSecret)
	cleanupSched := cleanup.New(cfg.SocketGrace)
	uploadStore := uploads.NewStore(cfg.UploadDir, cfg.UploadMaxBytes)

	lobbySvc := lobby.New(st, reg, cfg.PlayerLimitCap)
	chatSvc := chat.New(st)
	friendSvc := friend.New(st)
	gameSvc := game.New(st, reg)

	dispatcher := fanout.New(st, reg)
	dispatcherErrs := make(chan error, 1)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			dispatcherErrs <- err
		}
	}()

	httpSvc := httpapi.NewServer(signer, lobbySvc, chatSvc, friendSvc, gameSvc, uploadStore, st)
	wsSvc := wsapi.NewServer(reg, signer, cleanupSched, lobbySvc, gameSvc, cfg.HeartbeatInterval)

	serveErrs := make(chan error, 1)
	go func() {
		serveErrs <- server.Serve(ctx, cfg, releaseVersion, httpSvc, wsSvc)
	}()

	select {
	case err := <-serveErrs:
		return err
	case err := <-dispatcherErrs:
		stop()
		return err
	case <-ctx.Done():
		return <-serveErrs
	}
}

// openStore selects MongoStore when --store-uri is set, otherwise the
// in-memory store for local/dev use.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.StoreURI == "" {
		return store.NewMemoryStore(), func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.StoreURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(cfg.StoreDB)
	closeFn := func() {
		_ = client.Disconnect(context.Background())
	}
	return store.NewMongoStore(db), closeFn, nil
}
