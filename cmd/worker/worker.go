package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"viral-kid-platform/internal/config"
	"viral-kid-platform/internal/instagram"
	"viral-kid-platform/internal/logger"
	"viral-kid-platform/internal/queue"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg.GinMode == "debug")

	// Tracing is best-effort: a missing collector must not keep the
	// worker from draining the queue
	if shutdown, err := telemetry.InitTracer("viral-kid-worker", cfg.OTLPEndpoint); err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdown()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	// Connect to MongoDB
	ctx := context.Background()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	st := store.NewMongoStore(mongoClient.Database(cfg.DBName))

	// Queue client for follow-up jobs (the DM scheduling step)
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue Redis options:", err)
	}
	queueClient := queue.NewClient(redisOpt)
	defer queueClient.Close()

	graphClient := instagram.NewClient()

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:    cfg.WorkerConcurrency,
			RetryDelayFunc: queue.RetryDelay,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(st, graphClient, queueClient, metrics, cfg.AppBaseURL, cfg.CronSecret)

	// Register handlers; a kind without a handler errors at dispatch
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessComment, processor.HandleProcessComment)
	mux.HandleFunc(queue.TaskSendDM, processor.HandleSendDM)
	mux.HandleFunc(queue.TaskFetchTwitterTrends, processor.HandleFetchTwitterTrends)
	mux.HandleFunc(queue.TaskFetchYouTubeTrends, processor.HandleFetchYouTubeTrends)
	mux.HandleFunc(queue.TaskCleanupOldData, processor.HandleCleanup)

	logger.Info("Starting worker",
		"concurrency", cfg.WorkerConcurrency,
		"queues", "critical(6) default(3) low(1)")

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
