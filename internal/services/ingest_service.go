package services

import (
	"context"
	"os"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	"github.com/aidoc/backend-go/internal/kafka"
	"github.com/aidoc/backend-go/internal/knowledge"
	"github.com/aidoc/backend-go/internal/logger"
	"go.uber.org/zap"
)

// IngestResult 摄取任务的终态结果
type IngestResult struct {
	DocumentID *uint
	Status     string
	ChunkCount int
}

// IngestService 文档摄取管道：load → chunk → embed → persist。
// 依赖全部显式注入，没有进程级可变单例。
// 幂等性由去重检查提供：同一(filename, user_id)的任务重复执行
// 只会在第一次产生状态变更。
type IngestService struct {
	store    knowledge.VectorStore
	embedder knowledge.Embedder
	parser   *knowledge.FileParserManager
	chunker  *knowledge.Chunker
	status   TaskStatusStore
}

// NewIngestService 创建摄取管道
func NewIngestService(
	store knowledge.VectorStore,
	embedder knowledge.Embedder,
	parser *knowledge.FileParserManager,
	chunker *knowledge.Chunker,
	status TaskStatusStore,
) *IngestService {
	return &IngestService{
		store:    store,
		embedder: embedder,
		parser:   parser,
		chunker:  chunker,
		status:   status,
	}
}

// HandleTask kafka.TaskHandler适配。返回值告知消费者该错误是否值得重投递。
func (s *IngestService) HandleTask(ctx context.Context, task *kafka.IngestionTask) (bool, error) {
	result, err := s.Process(ctx, task)
	if err == nil {
		s.recordStatus(ctx, task, result, nil)
		return true, nil
	}

	appErr := apperrors.GetAppError(err)
	metricTasksFailed.WithLabelValues(string(appErr.Code)).Inc()

	if !appErr.Retryable() {
		// 终态失败：吞掉错误但记录可观测状态，消息会被确认
		s.recordStatus(ctx, task, nil, appErr)
		return false, err
	}

	// 可重试失败：中间状态也写出去，轮询方能看到任务还在重试
	s.recordStatus(ctx, task, nil, appErr)
	return true, err
}

// Process 执行一次摄取任务。失败时保证数据库中不残留该文档的任何状态，
// 重投递的任务从去重检查干净地重新开始。临时文件清理总是执行。
func (s *IngestService) Process(ctx context.Context, task *kafka.IngestionTask) (result *IngestResult, err error) {
	sm := newIngestStateMachine()
	logger.Info("Processing document",
		zap.String("task_id", task.TaskID),
		zap.String("filename", task.Filename),
		zap.String("user_id", task.UserID),
		zap.Int("attempt", task.Attempt))

	// 清理总是执行：删除临时源文件（成功、跳过、失败都一样）
	defer s.cleanup(task)

	// 1. 去重检查
	if err := sm.Transition(StateDedupCheck); err != nil {
		return nil, err
	}
	existingID, err := s.store.DocumentExists(ctx, task.Filename, task.UserID)
	if err != nil {
		return nil, err
	}
	if existingID != nil {
		sm.Transition(StateSkipped)
		logger.Info("Document already exists, skipping",
			zap.String("filename", task.Filename),
			zap.String("user_id", task.UserID),
			zap.Uint("document_id", *existingID))
		metricTasksSkipped.Inc()
		return &IngestResult{DocumentID: existingID, Status: OutcomeAlreadyExists}, nil
	}

	// 2. 加载源文件。文件丢失是终态失败：数据已经没了，重试无意义
	if err := sm.Transition(StateLoading); err != nil {
		return nil, err
	}
	file, err := os.Open(task.FilePath)
	if err != nil {
		logger.Error("Source file not found", zap.String("path", task.FilePath), zap.Error(err))
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeSourceFileMissing, "source file missing").WithCause(err)
	}
	text, parseErr := s.parser.ParseFile(file, task.Filename)
	file.Close()
	if parseErr != nil {
		return nil, apperrors.NewBusinessError(apperrors.ErrCodeInvalidFileFormat, "failed to extract text").WithCause(parseErr)
	}

	// 3. 分块
	if err := sm.Transition(StateChunking); err != nil {
		return nil, err
	}
	chunks := s.chunker.Split(text)

	// 4. 先提交文档记录拿到稳定ID，再逐块生成向量。
	// 任何一次嵌入失败都回滚文档行，不给去重检查留下半成品。
	if err := sm.Transition(StateEmbedding); err != nil {
		return nil, err
	}
	doc, err := s.store.CreateDocument(ctx, task.Filename, task.UserID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDuplicateDocument) {
			// 与并发任务撞了唯一索引，按已存在处理
			sm.Transition(StateSkipped)
			existingID, lookupErr := s.store.DocumentExists(ctx, task.Filename, task.UserID)
			if lookupErr != nil || existingID == nil {
				return nil, err
			}
			metricTasksSkipped.Inc()
			return &IngestResult{DocumentID: existingID, Status: OutcomeAlreadyExists}, nil
		}
		return nil, err
	}
	logger.Info("Created document, generating embeddings",
		zap.Uint("document_id", doc.DocumentID),
		zap.Int("chunks", len(chunks)))

	embedded := make([]knowledge.ChunkEmbedding, 0, len(chunks))
	for _, chunk := range chunks {
		vector, embedErr := s.embedder.Embed(ctx, chunk.Text)
		if embedErr != nil {
			s.rollbackDocument(ctx, doc.DocumentID)
			return nil, embedErr
		}
		embedded = append(embedded, knowledge.ChunkEmbedding{
			Content:   chunk.Text,
			Embedding: vector,
		})
	}

	// 5. 单事务原子写入全部chunk
	if err := sm.Transition(StatePersisting); err != nil {
		return nil, err
	}
	if err := s.store.InsertChunks(ctx, doc.DocumentID, embedded); err != nil {
		s.rollbackDocument(ctx, doc.DocumentID)
		return nil, err
	}

	sm.Transition(StateDone)
	logger.Info("Successfully ingested document",
		zap.String("filename", task.Filename),
		zap.Uint("document_id", doc.DocumentID),
		zap.Int("chunks", len(embedded)))
	metricTasksCompleted.Inc()
	metricChunksPersisted.Add(float64(len(embedded)))

	return &IngestResult{
		DocumentID: &doc.DocumentID,
		Status:     OutcomeCompleted,
		ChunkCount: len(embedded),
	}, nil
}

// rollbackDocument 删除半成品文档行。回滚自身失败只记日志：
// 该文档此时没有任何chunk，残留的空文档行会被重试时的去重检查接受，
// 属于规格允许的"tolerated by the dedup check"情形。
func (s *IngestService) rollbackDocument(ctx context.Context, documentID uint) {
	if err := s.store.DeleteDocumentByID(ctx, documentID); err != nil {
		logger.Error("Failed to roll back partial document",
			zap.Uint("document_id", documentID),
			zap.Error(err))
	}
}

// cleanup 删除临时源文件
func (s *IngestService) cleanup(task *kafka.IngestionTask) {
	if task.FilePath == "" {
		return
	}
	if _, err := os.Stat(task.FilePath); err == nil {
		if err := os.Remove(task.FilePath); err != nil {
			logger.Warn("Failed to remove temporary file",
				zap.String("path", task.FilePath),
				zap.Error(err))
			return
		}
		logger.Debug("Temporary file removed", zap.String("path", task.FilePath))
	}
}

// recordStatus 写任务状态，供查询端点轮询
func (s *IngestService) recordStatus(ctx context.Context, task *kafka.IngestionTask, result *IngestResult, appErr *apperrors.AppError) {
	if s.status == nil {
		return
	}

	status := &TaskStatus{
		TaskID:  task.TaskID,
		Attempt: task.Attempt,
	}
	switch {
	case appErr != nil && !appErr.Retryable():
		status.Status = OutcomeFailed
		status.Error = string(appErr.Code)
	case appErr != nil:
		status.Status = OutcomeProcessing
		status.Error = string(appErr.Code)
	case result != nil:
		status.Status = result.Status
		status.DocumentID = result.DocumentID
		status.ChunkCount = result.ChunkCount
	}

	if err := s.status.Set(ctx, status); err != nil {
		logger.Warn("Failed to record task status",
			zap.String("task_id", task.TaskID),
			zap.Error(err))
	}
}
