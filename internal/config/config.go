package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo

	// chunking
	ChunkSize    = 1500
	ChunkOverlap = 200

	// retrieval
	DefaultTopK = 5

	// embedding
	EmbeddingOutputDimensionality int32 = 1536
	GeminiEmbedPageSize                 = 100
	OpenAIEmbedPageSize                 = 50
	ProviderRetryAttempts               = 2
	ProviderRetryBackoff                = 5 * time.Second

	// client-side rate limit against the embedding APIs
	EmbedRequestsPerSecond = 5
	EmbedRequestBurst      = 10

	// spreadsheet catalogs: rows carrying this column become structured records
	SheetNameColumn = "Tên thủ tục"

	// models
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIModelName      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-large"

	// vector store
	ChunkCollection = "document_chunks"
	QdrantHost      = "localhost"
	QdrantGrpcPort  = 6334
	QdrantUseTLS    = false
	QdrantPoolSize  = 1

	// redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisCacheDB = 0
	RedisJobDB   = 1

	// rotator TTLs, mirrored from the admin-side key configuration lifecycle
	KeyPoolTTL       = 1 * time.Hour
	KeyCounterTTL    = 24 * time.Hour
	KeyAssignmentTTL = 1 * time.Hour

	// classifier catalog cache
	CatalogCacheTTL = 1 * time.Hour

	// worker pool
	MaxWorkerCount    int64 = 10
	MinWorkerCount    int64 = 1
	IdleWorkerTimeout       = 1 * time.Minute
	JobBufferLimit          = 100
	JobStoreTTL             = 24 * time.Hour

	// ops server
	OpsListenAddr          = ":3000"
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second
)

func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
