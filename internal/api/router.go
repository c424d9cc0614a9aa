// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/aidirector/studio/internal/di"
	"github.com/aidirector/studio/internal/services"
)

// SetupRouter configures the HTTP routes. Services are fetched from the DI
// container, never constructed here.
func SetupRouter(debugMode bool) (*gin.Engine, error) {
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	container := di.GetContainer()

	generationService, ok := container.Get("generation").(*services.GenerationService)
	if !ok {
		return nil, fmt.Errorf("generation service not initialized")
	}

	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("project service not initialized")
	}

	imageService, ok := container.Get("image").(*services.ImageService)
	if !ok {
		return nil, fmt.Errorf("image service not initialized")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("export service not initialized")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("progress service not initialized")
	}

	handler := NewHandler(generationService, projectService, imageService, exportService, progressService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())

	apiGroup := router.Group("/api")
	apiGroup.Use(DefaultRateLimit())
	{
		apiGroup.GET("/styles", handler.GetStyles)
		apiGroup.GET("/state", handler.GetState)
		apiGroup.GET("/project", handler.GetProject)

		apiGroup.PUT("/project/scenes/:variant/:id", handler.UpdateScene)
		apiGroup.POST("/project/scenes/:variant", handler.AddScene)
		apiGroup.DELETE("/project/scenes/:variant/:id", handler.RemoveScene)

		apiGroup.GET("/export", handler.ExportProject)
		apiGroup.POST("/import", handler.ImportProject)

		apiGroup.GET("/progress/:id", handler.ProgressSnapshot)
		apiGroup.GET("/generate-visuals/report", handler.BatchReport)
	}

	// Endpoints that fan out to metered providers get a tighter limit.
	generate := router.Group("/api")
	generate.Use(GenerationRateLimit())
	{
		generate.POST("/generate-outline", handler.GenerateOutline)
		generate.POST("/generate-image", handler.GenerateImage)
		generate.POST("/generate-visuals", handler.GenerateVisuals)
		generate.POST("/project/scenes/:variant/:id/regenerate", handler.RegenerateScene)
		generate.POST("/project/scenes/:variant/:id/modify", handler.ModifyScene)
	}

	router.GET("/ws/progress/:id", handler.ProgressWebSocket)

	return router, nil
}
