package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"etiqueta/internal/notify"
	"etiqueta/internal/printing"
	"etiqueta/internal/store"
)

// RegisterRoutes wires all v1 API routes.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	signer PreviewURLSigner,
	logger *slog.Logger,
	probeTimeout time.Duration,
	wsAllowedOrigins []string,
) {
	templateStore := store.NewTemplateStore(db)
	printerStore := store.NewPrinterStore(db)
	jobStore := store.NewJobStore(db)
	notifier := notify.NewPublisher(redisClient)
	submission := printing.NewSubmissionService(templateStore, jobStore, logger)

	templateHandler := NewTemplateHandler(templateStore, submission)
	printerHandler := NewPrinterHandler(printerStore, probeTimeout)
	jobHandler := NewJobHandler(jobStore, printerStore, asynqClient, signer, notifier, logger)
	wsHandler := NewWsHandler(redisClient, logger, wsAllowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		templateGroup := v1.Group("/templates")
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.POST("/test-print", templateHandler.TestPrint)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.PUT("/:id", templateHandler.UpdateTemplate)
			templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
			templateGroup.POST("/:id/print", templateHandler.PrintTemplate)
		}

		printerGroup := v1.Group("/printers")
		{
			printerGroup.POST("", printerHandler.CreatePrinter)
			printerGroup.GET("", printerHandler.ListPrinters)
			printerGroup.PUT("/:id", printerHandler.UpdatePrinter)
			printerGroup.DELETE("/:id", printerHandler.DeletePrinter)
			printerGroup.GET("/:id/status", printerHandler.PrinterStatus)
		}

		jobGroup := v1.Group("/jobs")
		{
			jobGroup.GET("", jobHandler.ListJobs)
			jobGroup.GET("/:id", jobHandler.GetJob)
			jobGroup.POST("/:id/retry", jobHandler.RetryJob)
			jobGroup.POST("/:id/cancel", jobHandler.CancelJob)
			jobGroup.POST("/:id/reprocess", jobHandler.ReprocessJob)
			jobGroup.PUT("/:id/printer", jobHandler.ChangePrinter)
			jobGroup.GET("/:id/preview", jobHandler.JobPreview)
		}
	}
}
