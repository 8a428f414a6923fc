package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
	"kb-engine/internal/data/store"
	"kb-engine/internal/domain/jobmodel"
	"kb-engine/internal/engine"
	"kb-engine/internal/extract"
	"kb-engine/internal/ingest"
	"kb-engine/internal/job"
	"kb-engine/internal/provider/embedding"
	"kb-engine/internal/provider/llm"
	"kb-engine/internal/query"
	"kb-engine/internal/rotator"
	"kb-engine/internal/server"
	"kb-engine/internal/vectorstore"
	"kb-engine/internal/worker"
	"kb-engine/pkg/logging"
)

var (
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logging.Init()
	var logger = logging.New("main")

	flag.StringVar(&listenAddr, "listen-addr", config.OpsListenAddr, "ops server listen address")
	flag.Parse()

	jobChannel := make(chan jobmodel.Job, config.JobBufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	// redis: one db for rotation and catalog caching, one for job state
	cacheStore := cache.Dial(serviceContext, config.RedisAddr, config.RedisCacheDB)
	if cacheStore == nil {
		logger.Error("Cache redis is offline, key rotation degrades to per-instance counters")
	}

	var jobStore jobmodel.JobStore
	if jobCache := cache.Dial(serviceContext, config.RedisAddr, config.RedisJobDB); jobCache != nil {
		jobStore = store.NewRedisJobStore(jobCache)
	} else {
		logger.Error("Job redis is offline, falling back to in-memory job store")
		jobStore = store.NewInMemoryJobStore()
	}

	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	})

	vectorDB, err := vectorstore.NewQdrant(serviceContext, config.ChunkCollection)
	if err != nil {
		logger.Error("Vector store failed to initialize. Shutting down.", "error", err)
		return
	}

	keys := rotator.New(cacheStore, store.EnvKeySource{})
	embedGateway := embedding.NewGateway()
	llmGateway := llm.NewGateway()
	extractor := extract.New(config.SheetNameColumn)
	documents := store.NewInMemoryDocumentStore()

	ingestion := ingest.New(documents, extractor, embedGateway, keys, vectorDB, cacheStore)
	classifier := query.NewClassifier(llmGateway, documents, cacheStore)
	retriever := query.NewRetriever(embedGateway, keys, vectorDB, classifier)

	pool := worker.NewPool(service, engine.New(ingestion, retriever), stopWorkerChannel, &workerWaitGroup)
	pool.Start()

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	opsServer := server.New(listenAddr, service)
	go opsServer.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	})
	go opsServer.Run()

	<-stopExecution
	logger.Info("Server stopped")
}
