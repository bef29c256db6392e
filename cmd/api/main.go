package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hoken-api/api/swagger"
	"github.com/noah-isme/hoken-api/internal/handler"
	"github.com/noah-isme/hoken-api/internal/middleware"
	"github.com/noah-isme/hoken-api/internal/repository"
	"github.com/noah-isme/hoken-api/internal/service"
	"github.com/noah-isme/hoken-api/pkg/cache"
	"github.com/noah-isme/hoken-api/pkg/clock"
	"github.com/noah-isme/hoken-api/pkg/config"
	"github.com/noah-isme/hoken-api/pkg/database"
	"github.com/noah-isme/hoken-api/pkg/export"
	"github.com/noah-isme/hoken-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hoken-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hoken-api/pkg/middleware/requestid"
)

// @title Hoken API
// @version 1.0.0
// @description School health-room administration backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Statistics.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Statistics.CacheTTL, logr, true)
	} else {
		cacheService = service.NewCacheService(nil, metricsService, cfg.Statistics.CacheTTL, logr, false)
	}

	studentRepo := repository.NewStudentRepository(db)
	healthRecordRepo := repository.NewHealthRecordRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	nursingRepo := repository.NewNursingRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	classRepo := repository.NewClassRepository(db)

	validate := validator.New()
	studentService := service.NewStudentService(studentRepo, validate, cfg.Validation.ClassTracks, logr)
	healthRecordService := service.NewHealthRecordService(healthRecordRepo, studentRepo, validate, cacheService, clock.System(), cfg.Validation.MinYear, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, logr)
	nursingService := service.NewNursingService(nursingRepo, studentRepo, logr)
	statisticsService := service.NewStatisticsService(statisticsRepo, cacheService, metricsService, logr)
	classService := service.NewClassService(classRepo, logr)
	exportService := service.NewExportService(studentService, statisticsService, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	studentHandler := handler.NewStudentHandler(studentService)
	healthRecordHandler := handler.NewHealthRecordHandler(healthRecordService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	nursingHandler := handler.NewNursingHandler(nursingService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	classHandler := handler.NewClassHandler(classService)
	exportHandler := handler.NewExportHandler(exportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		students := api.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.GET("/suggestions", studentHandler.Suggestions)
			students.GET("/:id", studentHandler.Get)
			students.POST("", studentHandler.Create)
			students.PUT("/:id", studentHandler.Update)
			students.DELETE("/:id", studentHandler.Delete)
		}

		records := api.Group("/health-records")
		{
			records.GET("", healthRecordHandler.List)
			records.GET("/:id", healthRecordHandler.Get)
			records.POST("", healthRecordHandler.Create)
			records.POST("/bulk", healthRecordHandler.Bulk)
			records.PUT("/:id", healthRecordHandler.Update)
			records.DELETE("/:id", healthRecordHandler.Delete)
		}

		attendance := api.Group("/attendance")
		{
			attendance.GET("", attendanceHandler.List)
			attendance.GET("/:id", attendanceHandler.Get)
			attendance.POST("", attendanceHandler.Store)
			attendance.POST("/bulk", attendanceHandler.Bulk)
			attendance.DELETE("/:id", attendanceHandler.Delete)
		}

		nursing := api.Group("/nursing")
		{
			nursing.GET("/visits", nursingHandler.ListVisits)
			nursing.GET("/visits/:id", nursingHandler.GetVisit)
			nursing.POST("/visits", nursingHandler.CreateVisit)
			nursing.POST("/visits/bulk", nursingHandler.BulkVisits)
			nursing.PUT("/visits/:id", nursingHandler.UpdateVisit)
			nursing.DELETE("/visits/:id", nursingHandler.DeleteVisit)
			nursing.GET("/logs/:date", nursingHandler.GetLog)
			nursing.PUT("/logs", nursingHandler.StoreLog)
		}

		statistics := api.Group("/statistics")
		{
			statistics.GET("", statisticsHandler.Report)
			statistics.GET("/trend", statisticsHandler.Trend)
		}

		classes := api.Group("/classes")
		{
			classes.GET("", classHandler.List)
			classes.GET("/:id", classHandler.Get)
			classes.PUT("", classHandler.Upsert)
		}

		exports := api.Group("/exports")
		{
			exports.GET("/students", exportHandler.Students)
			exports.GET("/statistics", exportHandler.Statistics)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
