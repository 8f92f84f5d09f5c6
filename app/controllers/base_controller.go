package controllers

import (
	"net/http"

	apperrors "github.com/aidoc/backend-go/internal/errors"
	"github.com/beego/beego/v2/server/web"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError maps an AppError onto its HTTP status code.
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	c.JSONError(appErr.HTTPCode, appErr.Message)
}

// getUserID 获取请求归属的用户标识。
// 鉴权不在本服务范围内，标识从header或查询参数透传。
func (c *BaseController) getUserID() string {
	if userID := c.Ctx.Input.Header("X-User-Id"); userID != "" {
		return userID
	}
	if userID := c.GetString("user_id"); userID != "" {
		return userID
	}
	return "guest"
}
