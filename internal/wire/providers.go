package wire

import (
	"context"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"gorm.io/gorm"

	"contentflow/internal/common"
	"contentflow/internal/config"
	"contentflow/internal/dbmongo"
	"contentflow/internal/dbmysql"
	"contentflow/internal/grpcapi"
	"contentflow/internal/item"
	"contentflow/internal/logger"
	"contentflow/internal/media"
	"contentflow/internal/notif"
)

// Application is everything cmd/workflow-svc runs.
type Application struct {
	Config  *config.Config
	DB      *gorm.DB
	Mongo   *dbmongo.MongoClient
	Hub     *notif.Hub
	Service *item.Service
	Router  *mux.Router
	GRPC    *GRPCServer
}

// MediaApplication is everything cmd/media-server runs.
type MediaApplication struct {
	Config *config.Config
	Mongo  *dbmongo.MongoClient
	Server *media.HTTPServer
}

type GRPCServer struct {
	Server *grpc.Server
	Health *health.Server
}

var storeSet = wire.NewSet(
	ProvideMySQL,
	ProvideMongo,
	dbmongo.NewMediaStorage,
)

var serviceSet = wire.NewSet(
	ProvideClock,
	item.NewItemRepository,
	wire.Bind(new(item.Repository), new(*item.ItemRepository)),
	ProvideHub,
	ProvideItemService,
	wire.Bind(new(item.ItemService), new(*item.Service)),
	item.NewHandler,
	ProvideWSHandler,
	ProvideRouter,
	ProvideSyncServer,
	ProvideGRPCServer,
)

// ProvideConfig loads configuration and initializes the loggers it describes.
func ProvideConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := logger.Init(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideMySQL(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewMySQL(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideMongo(cfg *config.Config) (*dbmongo.MongoClient, func(), error) {
	mc, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Close(ctx); err != nil {
			logger.App().WithError(err).Warn("mongodb disconnect failed")
		}
	}
	return mc, cleanup, nil
}

func ProvideClock() common.Clock {
	return common.SystemClock{}
}

func ProvideHub(cfg *config.Config) (*notif.Hub, func()) {
	hub := notif.NewHub(cfg.Sync.HubWorkers, cfg.Sync.HubBufferSize)
	hub.Subscribe(notif.NewAuditObserver())
	return hub, hub.Shutdown
}

func ProvideItemService(repo item.Repository, store *dbmongo.MediaStorage, hub *notif.Hub, clock common.Clock, cfg *config.Config) *item.Service {
	return item.NewService(repo, store, hub, clock, cfg.Sync.TombstoneRetention)
}

func ProvideWSHandler(hub *notif.Hub, cfg *config.Config) *notif.WSHandler {
	return notif.NewWSHandler(hub, cfg.Sync)
}

func ProvideRouter(h *item.Handler, ws *notif.WSHandler, cfg *config.Config) *mux.Router {
	return item.NewRouter(h, http.HandlerFunc(ws.Events), []byte(cfg.Auth.JWTSecret))
}

func ProvideSyncServer(hub *notif.Hub, cfg *config.Config) *grpcapi.SyncServer {
	return grpcapi.NewSyncServer(hub, cfg.Sync)
}

func ProvideGRPCServer(srv *grpcapi.SyncServer, cfg *config.Config) *GRPCServer {
	s, hs := grpcapi.NewGRPCServer([]byte(cfg.Auth.JWTSecret), srv)
	return &GRPCServer{Server: s, Health: hs}
}

func ProvideMediaServer(store common.MediaStore, cfg *config.Config) *media.HTTPServer {
	return media.NewHTTPServer(store, []byte(cfg.Auth.JWTSecret), cfg.Server)
}
