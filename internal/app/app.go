// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidirector/studio/internal/config"
	"github.com/aidirector/studio/internal/di"
	"github.com/aidirector/studio/internal/imagegen"
	"github.com/aidirector/studio/internal/services"
	"github.com/aidirector/studio/internal/utils"

	// Provider self-registration.
	_ "github.com/aidirector/studio/internal/imagegen/providers/modelslab"
	_ "github.com/aidirector/studio/internal/imagegen/providers/stability"
	_ "github.com/aidirector/studio/internal/llm/providers/google"
)

// App owns the process lifecycle: service wiring, HTTP serving, shutdown.
type App struct {
	config   *config.Config
	server   *http.Server
	stopChan chan struct{}
}

var (
	instance *App
	once     sync.Once
)

// GetApp returns the singleton application instance.
func GetApp() *App {
	once.Do(func() {
		instance = &App{
			stopChan: make(chan struct{}),
		}
	})
	return instance
}

// Initialize loads configuration and wires every service into the DI
// container in dependency order.
func (a *App) Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.config = cfg

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "studio.log")); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	container := di.GetContainer()

	projectService := services.NewProjectService()
	container.Register("project", projectService)

	outlineService := services.NewOutlineService(cfg.LLMProvider, cfg.GeminiAPIKeys)
	container.Register("outline", outlineService)

	imageService := services.NewImageService(cfg.ImageProvider, cfg.ImageAPIKeys())
	container.Register("image", imageService)

	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	generationService := services.NewGenerationService(projectService, outlineService, imageService, progressService)
	container.Register("generation", generationService)

	poller := imagegen.NewPoller(nil)
	container.Register("poller", poller)

	exportService := services.NewExportService(projectService, poller)
	container.Register("export", exportService)

	utils.GetLogger().Info("services initialized", map[string]interface{}{
		"llm_provider":   cfg.LLMProvider,
		"image_provider": cfg.ImageProvider,
		"services":       len(container.GetNames()),
	})

	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Run starts the HTTP server and blocks until a shutdown signal arrives.
func (a *App) Run(router *gin.Engine) error {
	a.server = &http.Server{
		Addr:    ":" + a.config.Port,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	utils.GetLogger().Info("server started", map[string]interface{}{"port": a.config.Port})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
	case <-a.stopChan:
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown() error {
	if a.server == nil {
		return nil
	}

	utils.GetLogger().Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return a.server.Shutdown(ctx)
}

// Stop requests a graceful stop from another goroutine.
func (a *App) Stop() {
	select {
	case <-a.stopChan:
	default:
		close(a.stopChan)
	}
}
