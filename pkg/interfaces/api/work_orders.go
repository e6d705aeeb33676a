package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/shopfloor/pkg/application/dto"
)

func (h *Handler) GetWorkOrder(c *gin.Context) {
	wo, err := h.svc.GetWorkOrder(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

func (h *Handler) StartWorkOrder(c *gin.Context) {
	wo, err := h.svc.StartWorkOrder(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

func (h *Handler) PauseWorkOrder(c *gin.Context) {
	var req dto.PauseWorkOrderInput
	// the reason is optional, so an empty body is fine
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	wo, err := h.svc.PauseWorkOrder(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

func (h *Handler) ResumeWorkOrder(c *gin.Context) {
	wo, err := h.svc.ResumeWorkOrder(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

func (h *Handler) CompleteWorkOrder(c *gin.Context) {
	var req dto.CompleteWorkOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wo, err := h.svc.CompleteWorkOrder(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

func (h *Handler) RecordScrap(c *gin.Context) {
	var req dto.RecordScrapInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wo, err := h.svc.RecordScrap(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, wo)
}

// OEE takes from and to as RFC 3339 timestamps
func (h *Handler) OEE(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": "from must be an RFC 3339 timestamp"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": "to must be an RFC 3339 timestamp"})
		return
	}
	report, err := h.svc.OEE(c.Request.Context(), actorOf(c), dto.OEEQuery{WorkCenterID: c.Param("id"), From: from, To: to})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, report)
}
