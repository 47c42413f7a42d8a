package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AlsitoQC/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: msg, Data: data})
}

// Fail 请求参数类错误
func Fail(c *gin.Context, msg string, data interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Msg: msg, Data: data})
}

// Error writes err with the given HTTP status. Coded errors keep their
// code in the body.
func Error(c *gin.Context, status int, err error, data interface{}) {
	code := errors.GetCode(err)
	if code == 0 {
		code = status
	}
	c.AbortWithStatusJSON(status, Response{Code: code, Msg: errors.GetMessage(err), Data: data})
}
