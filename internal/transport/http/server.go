package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"melonsense/internal/bootstrap"
	"melonsense/internal/transport/http/handler"
	"melonsense/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = app.Config.HTTP.MaxUploadBytes

	router.Use(
		middleware.RequestID(),
		logger.SetLogger(
			logger.WithUTC(true),
			logger.WithSkipPath([]string{"/healthz"}),
		),
		gin.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"*"},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	healthHandler := handler.NewHealthHandler(app)
	predictHandler := handler.NewPredictHandler(
		app.Assessment,
		app.Config.HTTP.MaxUploadBytes,
		app.Logger.Named("http"),
	)

	router.GET("/healthz", healthHandler.Check)
	router.POST("/predict", predictHandler.Predict)

	return router
}
