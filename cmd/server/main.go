// cmd/server/main.go
package main

import (
	"log"

	"github.com/aidirector/studio/internal/api"
	"github.com/aidirector/studio/internal/app"
)

func main() {
	application := app.GetApp()

	if err := application.Initialize(); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	router, err := api.SetupRouter(application.Config().DebugMode)
	if err != nil {
		log.Fatalf("failed to set up router: %v", err)
	}

	if err := application.Run(router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
