package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jazbelrose/mylg-chat/global/config"
	"github.com/jazbelrose/mylg-chat/logger"
	mid "github.com/jazbelrose/mylg-chat/middleware"
	"github.com/jazbelrose/mylg-chat/module/chat/sync"
	"github.com/jazbelrose/mylg-chat/service/chat"
	"github.com/jazbelrose/mylg-chat/service/history"
	"github.com/jazbelrose/mylg-chat/service/objectstore"
	"github.com/jazbelrose/mylg-chat/service/storage"
	redismgr "github.com/jazbelrose/mylg-chat/service/storage/redis"
	"github.com/jazbelrose/mylg-chat/tools/ids"
)

func main() {
	cfg := config.Load()
	ids.SetNodeID(1)

	var snapshots sync.SnapshotStore
	if cfg.RedisAddr != "" {
		if err := redismgr.Init(redismgr.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err != nil {
			logger.Errorf("redis init: %v", err)
			return
		}
		defer func() { _ = redismgr.Close() }()
		snapshots = storage.NewRedisSnapshots(redismgr.GetClient(), cfg.SnapshotTTL)
	} else {
		snapshots = storage.NewMemorySnapshots(cfg.SnapshotTTL)
	}

	api := history.NewClient(cfg.HistoryBaseURL)
	uploader := objectstore.NewHTTPUploader(cfg.UploadBaseURL, cfg.PublicBaseURL)
	blobs := objectstore.NewBlobStore()
	members := storage.NewMemberCache()

	channel, err := buildChannel(cfg)
	if err != nil {
		logger.Errorf("channel: %v", err)
		return
	}

	mgr := sync.NewManager(sync.ManagerConfig{
		Channel: channel,
		Factory: func(conversationID string) *sync.Engine {
			return sync.NewEngine(sync.Config{
				ConversationID: conversationID,
				SenderID:       cfg.UserID,
				SenderName:     cfg.UserName,
				Channel:        channel,
				History:        api,
				Rest:           api,
				Snapshots:      snapshots,
				Uploader:       uploader,
				Blobs:          blobs,
				Members:        members,
			})
		},
	})
	// Attached after the manager exists, so an inbound frame can never
	// observe a half-built session.
	channel.SetHandlers(mgr.HandleFrame, mgr.HandleOpen)

	r := gin.New()
	r.Use(gin.Recovery(), mid.Cors())
	registerRoutes(r, mgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		<-ctx.Done()
		_ = mgr.Close(context.Background())
		_ = srv.Shutdown(context.Background())
	}()

	logger.Infof("[http] listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Errorf("http server: %v", err)
	}
}

// pushChannel is what main needs from a transport: the sync contract plus
// post-construction handler attachment.
type pushChannel interface {
	sync.Channel
	SetHandlers(onFrame chat.FrameHandler, onOpen func())
}

func buildChannel(cfg config.App) (pushChannel, error) {
	if cfg.Transport == "nats" {
		return chat.NewNATSChannel(chat.NATSConfig{
			URL:         cfg.NATSURL,
			Name:        cfg.NATSName,
			SendSubject: cfg.NATSSendSubject,
			RecvSubject: cfg.NATSRecvSubject,
		})
	}
	return chat.NewWSChannel(cfg.SocketURL), nil
}
