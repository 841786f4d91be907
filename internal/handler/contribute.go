package handler

import (
	"net/http"
	"strconv"

	"github.com/collabdoc/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type ContributeHandler struct {
	service     *service.ContributeService
	voteService *service.VoteService
}

// NewContributeHandler 创建提案处理器
func NewContributeHandler(service *service.ContributeService, voteService *service.VoteService) *ContributeHandler {
	return &ContributeHandler{
		service:     service,
		voteService: voteService,
	}
}

// Create 创建提案
func (h *ContributeHandler) Create(c *gin.Context) {
	var req service.CreateContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribute, err := h.service.Create(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribute)
}

// Open 开放投票
func (h *ContributeHandler) Open(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	contribute, err := h.service.Open(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribute)
}

// Get 获取提案详情（含修改项）
func (h *ContributeHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	contribute, err := h.service.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribute)
}

// List 按文档、成员或状态过滤提案列表
func (h *ContributeHandler) List(c *gin.Context) {
	if raw := c.Query("document_id"); raw != "" {
		documentID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
			return
		}
		contributes, err := h.service.ListByDocument(uint(documentID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, contributes)
		return
	}

	if raw := c.Query("member_id"); raw != "" {
		memberID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		contributes, err := h.service.ListByMember(uint(memberID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, contributes)
		return
	}

	if status := c.Query("status"); status != "" {
		contributes, err := h.service.ListByStatus(status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, contributes)
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "document_id, member_id or status is required"})
}

// Withdraw 撤回提案
func (h *ContributeHandler) Withdraw(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	if err := h.service.Withdraw(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "withdrawn"})
}

// CastVote 对提案投票
// 成员身份与投票权重由上游身份子系统给出
func (h *ContributeHandler) CastVote(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	var req service.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ContributeID = uint(id)

	if err := h.voteService.CastVote(req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "voted"})
}

// GetVoteSummary 获取投票汇总
func (h *ContributeHandler) GetVoteSummary(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribute id"})
		return
	}

	summary, err := h.voteService.Summarize(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
