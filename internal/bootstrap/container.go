package bootstrap

import (
	"log"

	"ai-meeting-summary-be/internal/config"
	"ai-meeting-summary-be/internal/handler"
	"ai-meeting-summary-be/internal/pkg/logger"
	"ai-meeting-summary-be/internal/pkg/mailer"
	"ai-meeting-summary-be/internal/service"
	"ai-meeting-summary-be/pkg/identity"
	"ai-meeting-summary-be/pkg/llm/factory"
	"ai-meeting-summary-be/pkg/summary"
	"ai-meeting-summary-be/pkg/transcribe"

	pktNats "ai-meeting-summary-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const audioTopic = "audio.transcriptions"

type Container struct {
	// HTTP Handlers
	MeetingHandler *handler.MeetingHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	EventService    service.IEventService

	// Event Bus
	EventSubscriber *pktNats.Subscriber
	EventPublisher  *pktNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Internal Work Queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	// Initialize LLM Provider based on Config
	summaryKey := cfg.Keys.Groq
	if cfg.Summary.Provider == "gemini" {
		summaryKey = cfg.Keys.GoogleGemini
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Summary.Provider, summaryKey, cfg.Summary.Model)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Summary.Provider, cfg.Summary.Model)

	// Transcription provider chain, in configured priority order
	var transcriptionProviders []transcribe.Provider
	for _, name := range cfg.Transcription.Providers {
		switch name {
		case "groq":
			transcriptionProviders = append(transcriptionProviders,
				transcribe.NewGroqWhisperProvider(cfg.Keys.Groq, cfg.Transcription.GroqModel))
		case "openai":
			transcriptionProviders = append(transcriptionProviders,
				transcribe.NewOpenAIWhisperProvider(cfg.Keys.OpenAI, cfg.Transcription.OpenAIModel))
		default:
			log.Printf("[WARN] Unknown transcription provider %q, skipping", name)
		}
	}
	orchestrator, err := transcribe.NewOrchestrator(
		transcriptionProviders,
		cfg.Transcription.MaxRetries,
		cfg.Transcription.RetryDelay,
		cfg.Transcription.Deadline,
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize transcription orchestrator: %v", err)
	}

	emailResolver := identity.NewCachedResolver(
		identity.NewDirectoryResolver(cfg.Identity.DirectoryURL),
		cfg.Identity.CacheTTL,
	)

	// 4. Event Bus
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Keep the interface nil when the connection failed so the finalizer's
	// nil check holds.
	var summaryPublisher service.IEventPublisher
	if natsPub != nil {
		summaryPublisher = natsPub
	}

	// 5. Services
	trackerService := service.NewTrackerService(sysLogger)

	summaryGenerator := summary.NewGenerator(
		llmProvider,
		cfg.Summary.MaxRetries,
		cfg.Summary.RetryDelay,
		sysLogger,
	)

	finalizerService := service.NewFinalizerService(
		trackerService,
		summaryGenerator,
		emailResolver,
		emailService,
		summaryPublisher,
		cfg.Finalize.Cooldown,
		sysLogger,
	)

	publisherService := service.NewPublisherService(audioTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		audioTopic,
		orchestrator,
		trackerService,
		sysLogger,
	)
	eventService := service.NewEventService(
		trackerService,
		finalizerService,
		publisherService,
		sysLogger,
	)

	// 6. Handlers
	meetingHandler := handler.NewMeetingHandler(trackerService, orchestrator, sysLogger)

	return &Container{
		MeetingHandler:  meetingHandler,
		ConsumerService: consumerService,
		EventService:    eventService,
		EventSubscriber: natsSub,
		EventPublisher:  natsPub,
	}
}
