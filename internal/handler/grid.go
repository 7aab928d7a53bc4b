package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
)

// GridHandler BPU/DQE/DPGF 表格处理器
type GridHandler struct {
	service   service.LotService
	maxUpload int64
}

// NewGridHandler 创建表格处理器
func NewGridHandler(service service.LotService, maxUpload int64) *GridHandler {
	return &GridHandler{service: service, maxUpload: maxUpload}
}

// RegisterRoutes 注册路由
func (h *GridHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/procedures/:id/grids/:type")
	g.GET("", h.ListLots)
	g.GET("/export", h.ExportConsolidated)
	g.GET("/:lot", h.Get)
	g.PUT("/:lot", h.Save)
	g.POST("/:lot/edit", h.Edit)
	g.POST("/:lot/import", h.Import)
	g.POST("/:lot/duplicate", h.Duplicate)
	g.GET("/:lot/export", h.Export)
}

// SaveGridRequest 保存表格请求
type SaveGridRequest struct {
	Grid *grid.Grid `json:"grid" binding:"required"`
}

// EditGridRequest 批量编辑请求，全部成功才保存
type EditGridRequest struct {
	Edits []grid.Edit `json:"edits" binding:"required,min=1"`
}

// DuplicateRequest 复制请求，grid 为空时复制已保存的表格
type DuplicateRequest struct {
	Grid       *grid.Grid `json:"grid"`
	TargetLots []int      `json:"target_lots" binding:"required,min=1"`
}

func (h *GridHandler) docType(c *gin.Context) (uint, grid.DocType, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, "", false
	}
	docType, err := grid.ParseDocType(c.Param("type"))
	if err != nil {
		respondError(c, "ParseDocType", err)
		return 0, "", false
	}
	return id, docType, true
}

func (h *GridHandler) key(c *gin.Context) (service.LotKey, bool) {
	id, docType, ok := h.docType(c)
	if !ok {
		return service.LotKey{}, false
	}
	lot, ok := parseInt(c, "lot")
	if !ok {
		return service.LotKey{}, false
	}
	return service.LotKey{ProcedureID: id, DocType: docType, LotNumber: lot}, true
}

func (h *GridHandler) ListLots(c *gin.Context) {
	id, docType, ok := h.docType(c)
	if !ok {
		return
	}
	lots, err := h.service.ListLots(c.Request.Context(), id, docType)
	if err != nil {
		respondError(c, "ListGridLots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots, "total": len(lots)})
}

func (h *GridHandler) Get(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, "GetGrid", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *GridHandler) Save(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req SaveGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.Save(c.Request.Context(), key, req.Grid)
	if err != nil {
		respondError(c, "SaveGrid", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *GridHandler) Edit(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req EditGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.ApplyEdit(c.Request.Context(), key, req.Edits)
	if err != nil {
		respondError(c, "EditGrid", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *GridHandler) Import(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	filename, data, err := readUpload(c, h.maxUpload)
	if err != nil {
		respondError(c, "ImportGrid", err)
		return
	}
	res, err := h.service.Import(c.Request.Context(), key, filename, data)
	if err != nil {
		respondError(c, "ImportGrid", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Duplicate 复制到其他分标段
// 源表格已保存但目标写入失败时返回 500，并在响应中注明源表格已保存
func (h *GridHandler) Duplicate(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req DuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.service.Duplicate(c.Request.Context(), key, req.Grid, req.TargetLots)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateIncomplete) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "source_saved": true})
			return
		}
		respondError(c, "DuplicateGrid", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *GridHandler) Export(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	file, err := h.service.ExportLot(c.Request.Context(), key)
	if err != nil {
		respondError(c, "ExportGrid", err)
		return
	}
	sendFile(c, file)
}

// ExportConsolidated 汇总导出，lots=1,2,3 为空时导出全部分标段
func (h *GridHandler) ExportConsolidated(c *gin.Context) {
	id, docType, ok := h.docType(c)
	if !ok {
		return
	}
	lots, err := parseLotList(c.Query("lots"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	file, err := h.service.ExportConsolidated(c.Request.Context(), id, docType, lots)
	if err != nil {
		respondError(c, "ExportConsolidated", err)
		return
	}
	sendFile(c, file)
}

func parseLotList(s string) ([]int, error) {
	var lots []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New("invalid lots: " + part)
		}
		lots = append(lots, n)
	}
	return lots, nil
}
