package di

import (
	"time"

	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/database"
	"github.com/aidoc/backend-go/internal/kafka"
	"github.com/aidoc/backend-go/internal/knowledge"
	"github.com/aidoc/backend-go/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RegisterProviders 把基础设施和核心管道的构造函数注册进容器。
// 数据库和Redis连接必须先由bootstrap初始化。
func RegisterProviders(appCfg *config.Config) error {
	providers := []interface{}{
		func() *config.Config { return appCfg },
		func() *gorm.DB { return database.DB },
		func() *redis.Client { return database.RedisClient },
		func(db *gorm.DB) knowledge.VectorStore {
			return knowledge.NewPostgresVectorStore(db)
		},
		func(cfg *config.Config) knowledge.Embedder {
			return knowledge.NewOpenAIEmbedder(knowledge.EmbedderOptions{
				BaseURL:    cfg.Model.BaseURL,
				APIKey:     cfg.Model.APIKey,
				Model:      cfg.Model.EmbeddingModel,
				Dimensions: cfg.Model.EmbeddingDims,
				Timeout:    time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
			})
		},
		func(cfg *config.Config) knowledge.Generator {
			return knowledge.NewOpenAIGenerator(knowledge.GeneratorOptions{
				BaseURL: cfg.Model.BaseURL,
				APIKey:  cfg.Model.APIKey,
				Model:   cfg.Model.ChatModel,
				Timeout: time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
			})
		},
		func(cfg *config.Config) *knowledge.Chunker {
			return knowledge.NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
		},
		func() *knowledge.FileParserManager {
			return knowledge.NewFileParserManager()
		},
		func(rdb *redis.Client, cfg *config.Config) services.TaskStatusStore {
			return services.NewRedisTaskStatusStore(rdb, time.Duration(cfg.Redis.StatusTTL)*time.Second)
		},
		func() *kafka.Producer { return kafka.GetProducer() },
		func(store knowledge.VectorStore, embedder knowledge.Embedder, parser *knowledge.FileParserManager,
			chunker *knowledge.Chunker, status services.TaskStatusStore) *services.IngestService {
			return services.NewIngestService(store, embedder, parser, chunker, status)
		},
		func(store knowledge.VectorStore, embedder knowledge.Embedder, generator knowledge.Generator,
			cfg *config.Config) *services.AskService {
			return services.NewAskService(store, embedder, generator, cfg.Retrieval.TopK, cfg.Retrieval.AnswerLanguage)
		},
		func(store knowledge.VectorStore, producer *kafka.Producer, status services.TaskStatusStore) *services.DocumentService {
			return services.NewDocumentService(store, producer, status)
		},
	}

	for _, provider := range providers {
		if err := Provide(provider); err != nil {
			return err
		}
	}
	return nil
}
