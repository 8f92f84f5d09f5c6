package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/logger"
	"github.com/aidoc/backend-go/internal/services"
	"go.uber.org/zap"
)

// DocumentController 文档控制器：上传、列表、删除、任务状态。
// 纯透传层，所有算法都在服务与管道内。
type DocumentController struct {
	BaseController
	DocService *services.DocumentService
}

// NewDocumentController 创建文档控制器
func NewDocumentController(docService *services.DocumentService) *DocumentController {
	return &DocumentController{
		DocService: docService,
	}
}

// Upload 接收PDF上传，落盘后投递摄取任务
func (c *DocumentController) Upload() {
	userID := c.getUserID()

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "缺少上传文件")
		return
	}
	defer file.Close()

	cfg := config.GetAppConfig()
	if header.Size > cfg.FileUpload.MaxSize {
		c.JSONError(http.StatusRequestEntityTooLarge, "文件超过大小限制")
		return
	}

	ext := filepath.Ext(header.Filename)
	if !allowedType(cfg.FileUpload.AllowedTypes, ext) {
		c.JSONError(http.StatusBadRequest, "不支持的文件类型")
		return
	}

	// 文件完整落盘后才允许入队，worker只接受已写完的本地路径
	if err := os.MkdirAll(cfg.FileUpload.UploadPath, 0o755); err != nil {
		logger.Error("Failed to create upload directory", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "保存文件失败")
		return
	}
	savedPath := filepath.Join(cfg.FileUpload.UploadPath, fmt.Sprintf("%s_%s", userID, header.Filename))
	if err := c.SaveToFile("file", savedPath); err != nil {
		logger.Error("Failed to save uploaded file", zap.Error(err), zap.String("path", savedPath))
		c.JSONError(http.StatusInternalServerError, "保存文件失败")
		return
	}

	taskID, err := c.DocService.SubmitIngestion(c.Ctx.Request.Context(), savedPath, header.Filename, userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"task_id":  taskID,
		"filename": header.Filename,
		"message":  "File processing in background.",
	})
}

// List 返回用户的文档列表，支持filename子串过滤
func (c *DocumentController) List() {
	userID := c.getUserID()
	filter := c.GetString("filename")

	docs, err := c.DocService.ListDocuments(c.Ctx.Request.Context(), userID, filter)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
	})
}

// Delete 删除文档及其全部chunk
func (c *DocumentController) Delete() {
	userID := c.getUserID()

	docID, err := strconv.ParseUint(c.Ctx.Input.Param(":document_id"), 10, 64)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "非法的文档ID")
		return
	}

	if err := c.DocService.DeleteDocument(c.Ctx.Request.Context(), uint(docID), userID); err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"message": fmt.Sprintf("Document %d deleted.", docID),
	})
}

// TaskStatus 查询摄取任务的可观测状态
func (c *DocumentController) TaskStatus() {
	taskID := c.Ctx.Input.Param(":task_id")
	if taskID == "" {
		c.JSONError(http.StatusBadRequest, "缺少任务ID")
		return
	}

	status, err := c.DocService.GetTaskStatus(c.Ctx.Request.Context(), taskID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(status)
}

func allowedType(allowed []string, ext string) bool {
	ext = strings.ToLower(ext)
	for _, t := range allowed {
		if t == ext {
			return true
		}
	}
	return false
}
