package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/aidoc/backend-go/internal/services"
	"github.com/go-playground/validator/v10"
)

// AskController 问答控制器
type AskController struct {
	BaseController
	AskService *services.AskService
	Validate   *validator.Validate
}

// NewAskController 创建问答控制器
func NewAskController(askService *services.AskService) *AskController {
	return &AskController{
		AskService: askService,
		Validate:   validator.New(),
	}
}

// AskRequest 提问请求
type AskRequest struct {
	Question   string `json:"question" validate:"required,min=1"`
	DocumentID *uint  `json:"document_id,omitempty"`
}

// Ask 回答一个问题，可选限定在单个文档内。
// 管道保证永远返回文本，这个端点不会因内部失败返回5xx。
func (c *AskController) Ask() {
	userID := c.getUserID()

	var req AskRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := c.Validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, "question不能为空")
		return
	}

	answer := c.AskService.Answer(c.Ctx.Request.Context(), req.Question, userID, req.DocumentID)

	c.JSONSuccess(map[string]interface{}{
		"question": req.Question,
		"answer":   answer,
	})
}
