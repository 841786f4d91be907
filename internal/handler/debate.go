package handler

import (
	"net/http"
	"strconv"

	"github.com/collabdoc/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type DebateHandler struct {
	service *service.DebateService
}

// NewDebateHandler 创建讨论处理器
func NewDebateHandler(service *service.DebateService) *DebateHandler {
	return &DebateHandler{service: service}
}

// GetByContribute 获取提案对应的讨论
func (h *DebateHandler) GetByContribute(c *gin.Context) {
	contributeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	debate, err := h.service.GetByContribute(uint(contributeID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

// PostComment 在讨论中发表评论
func (h *DebateHandler) PostComment(c *gin.Context) {
	debateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid debate id"})
		return
	}

	var req service.RecordCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.DebateID = uint(debateID)

	comment, err := h.service.RecordComment(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// ListComments 获取讨论的评论列表
func (h *DebateHandler) ListComments(c *gin.Context) {
	debateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid debate id"})
		return
	}

	comments, err := h.service.ListComments(uint(debateID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
