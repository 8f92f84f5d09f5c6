package services

import (
	"context"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	"github.com/aidoc/backend-go/internal/kafka"
	"github.com/aidoc/backend-go/internal/knowledge"
	"github.com/aidoc/backend-go/internal/logger"
	"github.com/aidoc/backend-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService 面向调用方的文档操作：提交摄取、列表、删除、任务状态查询。
// 摄取和检索的算法都在管道里，这里只是薄封装。
type DocumentService struct {
	store    knowledge.VectorStore
	producer *kafka.Producer
	status   TaskStatusStore
}

// NewDocumentService 创建文档服务
func NewDocumentService(store knowledge.VectorStore, producer *kafka.Producer, status TaskStatusStore) *DocumentService {
	return &DocumentService{
		store:    store,
		producer: producer,
		status:   status,
	}
}

// SubmitIngestion 为已落盘的文件创建摄取任务并入队。
// 文件必须已经完整写入filePath，调用方负责这一点。
func (s *DocumentService) SubmitIngestion(ctx context.Context, filePath, filename, userID string) (string, error) {
	task := &kafka.IngestionTask{
		TaskID:   uuid.NewString(),
		FilePath: filePath,
		Filename: filename,
		UserID:   userID,
		Attempt:  1,
	}

	if err := s.producer.EnqueueTask(task); err != nil {
		return "", apperrors.NewExternalError(apperrors.ErrCodeInternalServer, "failed to enqueue ingestion task").WithCause(err)
	}

	// 入队即可见：调用方马上就能轮询到processing
	if s.status != nil {
		if err := s.status.Set(ctx, &TaskStatus{
			TaskID:  task.TaskID,
			Status:  OutcomeProcessing,
			Attempt: 1,
		}); err != nil {
			logger.Warn("Failed to record initial task status", zap.String("task_id", task.TaskID), zap.Error(err))
		}
	}

	logger.Info("Ingestion task submitted",
		zap.String("task_id", task.TaskID),
		zap.String("filename", filename),
		zap.String("user_id", userID))

	return task.TaskID, nil
}

// ListDocuments 返回用户的文档列表，filter非空时按文件名子串过滤
func (s *DocumentService) ListDocuments(ctx context.Context, userID, filter string) ([]models.Document, error) {
	return s.store.ListDocuments(ctx, userID, filter)
}

// DeleteDocument 删除用户的文档及其全部chunk。
// 文档不存在或不归属于该用户时返回NOT_FOUND错误，存储不发生变更。
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID uint, userID string) error {
	deleted, err := s.store.DeleteDocument(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFoundError("document")
	}

	logger.Info("Document deleted",
		zap.Uint("document_id", documentID),
		zap.String("user_id", userID))
	return nil
}

// GetTaskStatus 查询摄取任务状态，未知任务返回NOT_FOUND错误
func (s *DocumentService) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	status, err := s.status.Get(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to read task status").WithCause(err)
	}
	if status == nil {
		return nil, apperrors.NewNotFoundError("task")
	}
	return status, nil
}
