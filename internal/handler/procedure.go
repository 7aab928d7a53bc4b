package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service"
	"k8s.io/klog/v2"
)

const defaultActivityLimit = 50

// ProcedureHandler 程序与分标段处理器
type ProcedureHandler struct {
	service   service.ProcedureService
	maxUpload int64
}

// NewProcedureHandler 创建程序处理器
func NewProcedureHandler(service service.ProcedureService, maxUpload int64) *ProcedureHandler {
	return &ProcedureHandler{service: service, maxUpload: maxUpload}
}

// RegisterRoutes 注册路由
func (h *ProcedureHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/procedures", h.Create)
	router.GET("/procedures", h.List)
	router.POST("/procedures/import", h.Import)
	router.GET("/procedures/:id", h.Get)
	router.PUT("/procedures/:id", h.Update)
	router.DELETE("/procedures/:id", h.Delete)
	router.GET("/procedures/:id/lots", h.ListLots)
	router.PUT("/procedures/:id/lots/:lot", h.UpsertLot)
	router.GET("/procedures/:id/activity", h.ListActivity)
}

func (h *ProcedureHandler) Create(c *gin.Context) {
	var req service.CreateProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		klog.V(6).Infof("CreateProcedure: invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "CreateProcedure", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProcedureHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, "ListProcedures", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

func (h *ProcedureHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetProcedure", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProcedureHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, "UpdateProcedure", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProcedureHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "DeleteProcedure", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Import 从电子表格批量导入程序
func (h *ProcedureHandler) Import(c *gin.Context) {
	filename, data, err := readUpload(c, h.maxUpload)
	if err != nil {
		respondError(c, "ImportProcedures", err)
		return
	}
	report, err := h.service.ImportProcedures(c.Request.Context(), filename, data)
	if err != nil {
		respondError(c, "ImportProcedures", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ProcedureHandler) ListLots(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lots, err := h.service.ListLots(c.Request.Context(), id)
	if err != nil {
		respondError(c, "ListLots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots, "total": len(lots)})
}

func (h *ProcedureHandler) UpsertLot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	number, ok := parseInt(c, "lot")
	if !ok {
		return
	}
	var req service.UpsertLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.service.UpsertLot(c.Request.Context(), id, number, req)
	if err != nil {
		respondError(c, "UpsertLot", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// ListActivity 最近的操作记录，limit 默认 50
func (h *ProcedureHandler) ListActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit := defaultActivityLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.service.ListActivity(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, "ListActivity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}
