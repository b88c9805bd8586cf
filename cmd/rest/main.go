package main

import (
	"context"
	"log"

	"ai-meeting-summary-be/internal/bootstrap"
	"ai-meeting-summary-be/internal/config"
	"ai-meeting-summary-be/internal/server"
	"ai-meeting-summary-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 4. Subscribe to the meeting event stream
	if container.EventSubscriber != nil {
		err := container.EventSubscriber.Subscribe("meetings.>", "meeting-summary-worker", container.EventService.HandleEvent)
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to meeting events: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
