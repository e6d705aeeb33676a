package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/shopfloor/pkg/application/dto"
	"github.com/vsinha/shopfloor/pkg/interfaces/export"
)

func (h *Handler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	mo, err := h.svc.Create(c.Request.Context(), actorOf(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": CodeOK, "message": "success", "data": mo})
}

func (h *Handler) GetOrder(c *gin.Context) {
	mo, err := h.svc.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) ListOrders(c *gin.Context) {
	query := dto.ListOrdersQuery{
		State:        c.Query("state"),
		ProductID:    c.Query("product_id"),
		Priority:     c.Query("priority"),
		WorkCenterID: c.Query("workcenter_id"),
	}
	orders, err := h.svc.List(c.Request.Context(), actorOf(c), query)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": orders, "total": len(orders)})
}

func (h *Handler) ConfirmOrder(c *gin.Context) {
	mo, err := h.svc.Confirm(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) StartOrder(c *gin.Context) {
	mo, err := h.svc.Start(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) CompleteOrder(c *gin.Context) {
	var req dto.CompleteOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	mo, err := h.svc.Complete(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	mo, err := h.svc.Cancel(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) SplitOrder(c *gin.Context) {
	var req dto.SplitOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.svc.Split(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	report, err := h.svc.CheckAvailability(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, report)
}

func (h *Handler) ReserveMaterials(c *gin.Context) {
	mo, err := h.svc.Reserve(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) ReleaseMaterials(c *gin.Context) {
	mo, err := h.svc.Release(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mo)
}

func (h *Handler) CostSummary(c *gin.Context) {
	summary, err := h.svc.CostSummary(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, summary)
}

// ExportCosting downloads the costing workbook of an order
func (h *Handler) ExportCosting(c *gin.Context) {
	report, err := h.svc.CostReport(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	f, err := export.Workbook(report)
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(report.Order)+`"`)
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
