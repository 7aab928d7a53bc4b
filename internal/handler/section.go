package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/sectionparser"
)

// SectionHandler CCAP/CCTP 等章节型文档处理器
type SectionHandler struct {
	service   service.SectionService
	maxUpload int64
}

// NewSectionHandler 创建章节处理器
func NewSectionHandler(service service.SectionService, maxUpload int64) *SectionHandler {
	return &SectionHandler{service: service, maxUpload: maxUpload}
}

// RegisterRoutes 注册路由，lot 为 0 表示程序级文档
func (h *SectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/procedures/:id/sections/:type/:lot")
	g.GET("", h.Get)
	g.PUT("", h.Save)
	g.POST("/items", h.Add)
	g.PUT("/items/:index", h.Update)
	g.DELETE("/items/:index", h.Delete)
	g.POST("/move", h.Move)
	g.POST("/import", h.Import)
	g.GET("/export", h.Export)
}

// SaveSectionsRequest 整体替换章节
type SaveSectionsRequest struct {
	Sections []sectionparser.Section `json:"sections"`
}

// AddSectionRequest 新增章节，position 为空时追加
type AddSectionRequest struct {
	Position *int   `json:"position"`
	Level    int    `json:"level"`
	Title    string `json:"title"`
}

// MoveSectionRequest 移动章节
type MoveSectionRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

func (h *SectionHandler) key(c *gin.Context) (service.SectionKey, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return service.SectionKey{}, false
	}
	docType, err := service.ParseSectionDocType(c.Param("type"))
	if err != nil {
		respondError(c, "ParseSectionDocType", err)
		return service.SectionKey{}, false
	}
	lot, ok := parseInt(c, "lot")
	if !ok {
		return service.SectionKey{}, false
	}
	return service.SectionKey{ProcedureID: id, DocType: docType, LotNumber: lot}, true
}

func (h *SectionHandler) Get(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, "GetSections", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *SectionHandler) Save(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req SaveSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.Save(c.Request.Context(), key, req.Sections)
	if err != nil {
		respondError(c, "SaveSections", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *SectionHandler) Add(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}
	doc, err := h.service.AddSection(c.Request.Context(), key, position, req.Level, req.Title)
	if err != nil {
		respondError(c, "AddSection", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *SectionHandler) Update(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	index, ok := parseInt(c, "index")
	if !ok {
		return
	}
	var patch service.SectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.UpdateSection(c.Request.Context(), key, index, patch)
	if err != nil {
		respondError(c, "UpdateSection", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *SectionHandler) Delete(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	index, ok := parseInt(c, "index")
	if !ok {
		return
	}
	doc, err := h.service.DeleteSection(c.Request.Context(), key, index)
	if err != nil {
		respondError(c, "DeleteSection", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *SectionHandler) Move(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var req MoveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.service.MoveSection(c.Request.Context(), key, *req.From, *req.To)
	if err != nil {
		respondError(c, "MoveSection", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Import 上传模板并替换章节列表
func (h *SectionHandler) Import(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	filename, data, err := readUpload(c, h.maxUpload)
	if err != nil {
		respondError(c, "ImportSections", err)
		return
	}
	res, err := h.service.Import(c.Request.Context(), key, filename, data)
	if err != nil {
		respondError(c, "ImportSections", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SectionHandler) Export(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	file, err := h.service.ExportMarkdown(c.Request.Context(), key)
	if err != nil {
		respondError(c, "ExportSections", err)
		return
	}
	sendFile(c, file)
}
