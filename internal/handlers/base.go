package handlers

import (
	"campuslink/internal/services"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSON helper: success 响应统一带 success=true
func OK(c *gin.Context, code int, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	obj["success"] = true
	c.JSON(code, obj)
}

// Fail 错误响应统一带 success=false 和描述信息
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "message": message})
}

// FailWorkflow 把工作流错误分类映射到 HTTP 状态码
// 全部是可恢复错误，消息原样透给调用方
func FailWorkflow(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		Fail(c, http.StatusBadRequest, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, "Server error")
	}
}

// ParsePagination 解析 page/limit 查询参数
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int) (page, limit, offset int) {
	page = 1
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	limit = defaultLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = (page - 1) * limit
	return
}

// PageMeta 构造分页信息
func PageMeta(total int64, page, limit int) gin.H {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}
	return gin.H{
		"currentPage": page,
		"totalPages":  totalPages,
		"total":       total,
		"hasNext":     page < totalPages,
		"hasPrev":     page > 1,
	}
}
