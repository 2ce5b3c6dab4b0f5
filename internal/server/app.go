// Package server initializes and runs the filedrop server: metadata store,
// blob store backend, share service, HTTP endpoint and the retention
// sweeper, with graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/filex"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/chunks"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/httpapi"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
	"github.com/dmitrijs2005/filedrop/internal/server/sharecode"
	"github.com/dmitrijs2005/filedrop/internal/server/sweeper"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	blobs   blobstore.Store
	httpSrv *httpapi.Server
	sweeper *sweeper.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	repos, err := repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	sessions := chunks.NewStore(blobs, c.ChunkSessionTTL)
	alloc := sharecode.NewAllocator(repos.Shares())
	sw := sweeper.NewSweeper(repos.Shares(), blobs, logger)
	shareService := services.NewShareService(repos.Shares(), blobs, sessions, alloc, sw, c, logger)
	httpSrv := httpapi.NewServer(c.EndpointAddr, shareService, c, logger)

	return &App{
		config:  c,
		logger:  logger,
		repos:   repos,
		blobs:   blobs,
		httpSrv: httpSrv,
		sweeper: sw,
	}, nil
}

func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "badger":
		dir, err := filex.EnsureDir(c.BadgerDir)
		if err != nil {
			return nil, err
		}
		return blobstore.NewBadgerStore(dir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpSrv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx, app.config.SweepInterval)
	}()

	wg.Wait()

	if err := app.blobs.Close(); err != nil {
		app.logger.Error(ctx, "blob store close error", "error", err)
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
