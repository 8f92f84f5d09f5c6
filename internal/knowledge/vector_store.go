package knowledge

import (
	"context"

	"github.com/aidoc/backend-go/internal/models"
)

// ChunkEmbedding 待持久化的chunk内容与向量
type ChunkEmbedding struct {
	Content   string
	Embedding []float32
}

// NeighborQuery 最近邻检索请求
type NeighborQuery struct {
	Embedding []float32
	UserID    string
	// 非nil时将检索限制在单个文档内
	DocumentID *uint
	K          int
}

// VectorStore 持久化引擎上的窄接口：chunk写入与按归属过滤的最近邻检索。
// 实现必须保证InsertChunks的原子性——任何调用方都不应观察到不完整的chunk集合。
type VectorStore interface {
	CreateDocument(ctx context.Context, filename, userID string) (*models.Document, error)
	InsertChunks(ctx context.Context, documentID uint, chunks []ChunkEmbedding) error
	NearestNeighbors(ctx context.Context, query NeighborQuery) ([]string, error)
	DocumentExists(ctx context.Context, filename, userID string) (*uint, error)
	DeleteDocument(ctx context.Context, documentID uint, userID string) (bool, error)
	DeleteDocumentByID(ctx context.Context, documentID uint) error
	ListDocuments(ctx context.Context, userID, filenameFilter string) ([]models.Document, error)
	Ready() bool
}
