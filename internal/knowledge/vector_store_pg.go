package knowledge

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	"github.com/aidoc/backend-go/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTopK 最近邻检索的默认返回数量
const DefaultTopK = 15

// PostgresVectorStore 基于PostgreSQL + pgvector的向量存储。
// 距离算子使用 <=> （余弦距离），全部查询参数化，不拼接SQL字符串。
type PostgresVectorStore struct {
	db *gorm.DB
}

func NewPostgresVectorStore(db *gorm.DB) VectorStore {
	return &PostgresVectorStore{db: db}
}

// CreateDocument 创建并立即提交文档记录，保证后续步骤拿到稳定ID。
// (filename, user_id)唯一索引冲突作为重复文档返回。
func (s *PostgresVectorStore) CreateDocument(ctx context.Context, filename, userID string) (*models.Document, error) {
	doc := &models.Document{
		Filename: filename,
		UserID:   userID,
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewBusinessError(apperrors.ErrCodeDuplicateDocument, "document already exists").WithCause(err)
		}
		return nil, apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "failed to create document").WithCause(err)
	}
	return doc, nil
}

// InsertChunks 在单个事务中写入文档的全部chunk，要么全部可见要么全部不可见
func (s *PostgresVectorStore) InsertChunks(ctx context.Context, documentID uint, chunks []ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]models.DocumentChunk, 0, len(chunks))
	for i, c := range chunks {
		rows = append(rows, models.DocumentChunk{
			DocumentID: documentID,
			Content:    c.Content,
			ChunkIndex: i,
			Embedding:  pgvector.NewVector(c.Embedding),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "failed to insert chunks").WithCause(err)
	}
	return nil
}

// NearestNeighbors 按余弦距离升序返回最相关的chunk内容，
// 始终限定在query.UserID拥有的文档内。无匹配时返回空切片而非错误。
func (s *PostgresVectorStore) NearestNeighbors(ctx context.Context, query NeighborQuery) ([]string, error) {
	if len(query.Embedding) == 0 {
		return nil, apperrors.NewValidationError("query embedding is empty")
	}
	if query.K <= 0 {
		query.K = DefaultTopK
	}

	vec := pgvector.NewVector(query.Embedding)

	tx := s.db.WithContext(ctx).
		Table("document_chunks AS dc").
		Select("dc.content").
		Joins("JOIN documents d ON dc.document_id = d.document_id").
		Where("d.user_id = ?", query.UserID)

	if query.DocumentID != nil {
		tx = tx.Where("d.document_id = ?", *query.DocumentID)
	}

	var contents []string
	err := tx.Clauses(clause.OrderBy{
		Expression: clause.Expr{SQL: "dc.embedding <=> ?", Vars: []interface{}{vec}, WithoutParentheses: true},
	}).
		Limit(query.K).
		Pluck("dc.content", &contents).Error
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "nearest neighbor query failed").WithCause(err)
	}

	return contents, nil
}

// DocumentExists 按(filename, userID)查找未删除的文档，命中返回其ID
func (s *PostgresVectorStore) DocumentExists(ctx context.Context, filename, userID string) (*uint, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("filename = ? AND user_id = ?", filename, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "document lookup failed").WithCause(err)
	}
	return &doc.DocumentID, nil
}

// DeleteDocument 删除归属于userID的文档，chunk由外键级联删除。
// 文档不存在或不归属于该用户时返回false而非错误。
func (s *PostgresVectorStore) DeleteDocument(ctx context.Context, documentID uint, userID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		Delete(&models.Document{})
	if result.Error != nil {
		return false, apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "failed to delete document").WithCause(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteDocumentByID 摄取管道的回滚入口：嵌入失败后移除半成品文档行，
// 让重投递的任务从去重检查干净地重新开始
func (s *PostgresVectorStore) DeleteDocumentByID(ctx context.Context, documentID uint) error {
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&models.Document{}).Error
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure,
			fmt.Sprintf("failed to roll back document %d", documentID)).WithCause(err)
	}
	return nil
}

// ListDocuments 返回用户的全部文档，filenameFilter非空时做子串过滤
func (s *PostgresVectorStore) ListDocuments(ctx context.Context, userID, filenameFilter string) ([]models.Document, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filenameFilter != "" {
		tx = tx.Where("filename ILIKE ?", "%"+filenameFilter+"%")
	}

	var docs []models.Document
	if err := tx.Order("upload_date DESC").Find(&docs).Error; err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodePersistenceFailure, "failed to list documents").WithCause(err)
	}
	return docs, nil
}

func (s *PostgresVectorStore) Ready() bool {
	return s.db != nil
}
