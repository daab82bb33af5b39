package main

import (
	"context"
	"log"

	"github.com/felixniemeyer/ai-mediator/internal/bootstrap"
	"github.com/felixniemeyer/ai-mediator/internal/config"
	"github.com/felixniemeyer/ai-mediator/internal/server"
	"github.com/felixniemeyer/ai-mediator/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 3. Start Background Services
	// Note: In a larger app, we might use an errgroup or supervisor here
	go func() {
		log.Println("Background: Starting Dispatch Consumer...")
		if err := container.DispatchService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
