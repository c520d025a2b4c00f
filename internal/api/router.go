package api

import (
	"github.com/gin-gonic/gin"

	"plate_reader/internal/api/handler"
	"plate_reader/internal/api/middleware"
)

func SetupRouter(detectionH *handler.DetectionHandler, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/", detectionH.Home)
	r.GET("/health", detectionH.Health)
	r.POST("/upload/", detectionH.Upload)

	if wsManager != nil {
		wsHandler := handler.NewWebSocketHandler(wsManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	v1 := r.Group("/api/v1")
	{
		lprRoutes := v1.Group("/lpr")
		{
			lprRoutes.POST("/process-image", detectionH.ProcessImage)
		}
	}
	return r
}
