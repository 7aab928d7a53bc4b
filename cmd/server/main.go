package main

import (
	"flag"
	"log"
	"os"

	"k8s.io/klog/v2"

	"github.com/opendce/backend/config"
	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/handler"
	"github.com/opendce/backend/internal/pkg/database"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/router"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/opendce/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// 初始化 Repository
	procedureRepo := repository.NewProcedureRepository(db)
	lotDocRepo := repository.NewLotDocumentRepository(db)
	sectionDocRepo := repository.NewSectionDocumentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// 事件总线与操作日志
	lotBus := eventbus.NewLotEventBus()
	sectionBus := eventbus.NewSectionEventBus()
	activitySub := subscriber.NewActivitySubscriber(activityRepo)
	activitySub.RegisterLot(lotBus)
	activitySub.RegisterSection(sectionBus)

	engine := grid.NewEngine(grid.Config{
		DefaultRows:    cfg.Grid.DefaultRows,
		DefaultVATRate: cfg.Grid.DefaultVATRate,
		HeaderScanRows: cfg.Import.HeaderScanRows,
		HeaderMinHits:  cfg.Import.HeaderMinHits,
	})
	extractor := sectionparser.NewExtractor(sectionparser.Options{
		ArticleMinMatches:  cfg.Extractor.ArticleMinMatches,
		CombinedMinMatches: cfg.Extractor.CombinedMinMatches,
		CombinedMaxMatches: cfg.Extractor.CombinedMaxMatches,
		MarkupMinSections:  cfg.Extractor.MarkupMinSections,
	})

	// 初始化 Service
	procedureService := service.NewProcedureService(procedureRepo, activityRepo, engine)
	lotService := service.NewLotService(lotDocRepo, procedureRepo, engine, lotBus, cfg.Export.Workers)
	sectionService := service.NewSectionService(sectionDocRepo, procedureRepo, extractor, sectionBus)

	// 初始化 Handler
	maxUpload := cfg.MaxUploadBytes()
	r := router.Setup(cfg, router.Handlers{
		Health:     handler.NewHealthHandler(sqlDB),
		Procedures: handler.NewProcedureHandler(procedureService, maxUpload),
		Grids:      handler.NewGridHandler(lotService, maxUpload),
		Sections:   handler.NewSectionHandler(sectionService, maxUpload),
		Tools:      handler.NewToolsHandler(extractor, engine, maxUpload),
	})

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
