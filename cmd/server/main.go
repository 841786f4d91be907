package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/eventbus"
	"github.com/collabdoc/backend/internal/handler"
	"github.com/collabdoc/backend/internal/pkg/database"
	"github.com/collabdoc/backend/internal/repository"
	"github.com/collabdoc/backend/internal/router"
	"github.com/collabdoc/backend/internal/service"
	"github.com/collabdoc/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	docRepo := repository.NewDocumentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	contributeRepo := repository.NewContributeRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	debateRepo := repository.NewDebateRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// 初始化 Service
	docService := service.NewDocumentService(cfg, db, docRepo, sectionRepo)
	voteService := service.NewVoteService(cfg, voteRepo, contributeRepo)
	mergeService := service.NewMergeService(db, sectionRepo, contributeRepo, outboxRepo)
	debateService := service.NewDebateService(cfg, db, debateRepo, contributeRepo, outboxRepo)
	contributeService := service.NewContributeService(cfg, db, contributeRepo, docRepo, sectionRepo, outboxRepo, voteService, mergeService, debateService)

	// 事件总线与订阅者
	bus := eventbus.NewContributeEventBus()
	subscriber.NewContributeEventSubscriber().Register(bus)

	// 发件箱分发器：轮询未投递事件并发布到事件总线
	dispatcher := service.NewOutboxDispatcher(outboxRepo, contributeRepo, bus, cfg.Sweep.Interval)
	dispatcher.Start()
	defer dispatcher.Stop()

	// 后台巡检：到期投票窗口结算 + 过期讨论收尾
	sweeper, err := service.NewSweeper(cfg, contributeService, debateService)
	if err != nil {
		log.Fatalf("Failed to initialize sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// 初始化 Handler
	docHandler := handler.NewDocumentHandler(docService)
	contributeHandler := handler.NewContributeHandler(contributeService, voteService)
	debateHandler := handler.NewDebateHandler(debateService)

	// 设置路由
	r := router.Setup(cfg, docHandler, contributeHandler, debateHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
