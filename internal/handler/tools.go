package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/pkg/officedoc"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
)

// ToolsHandler 不落库的识别工具：章节识别与表头匹配
type ToolsHandler struct {
	extractor *sectionparser.Extractor
	engine    *grid.Engine
	maxUpload int64
}

// NewToolsHandler 创建工具处理器
func NewToolsHandler(extractor *sectionparser.Extractor, engine *grid.Engine, maxUpload int64) *ToolsHandler {
	return &ToolsHandler{extractor: extractor, engine: engine, maxUpload: maxUpload}
}

// RegisterRoutes 注册路由
func (h *ToolsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/tools/sections/extract", h.ExtractSections)
	router.POST("/tools/columns/match", h.MatchColumns)
}

// ExtractResponse 章节识别结果
type ExtractResponse struct {
	Filename string                    `json:"filename"`
	Tier     sectionparser.Tier        `json:"tier"`
	Count    int                       `json:"count"`
	Sections []service.NumberedSection `json:"sections"`
}

// MatchColumnsRequest 表头匹配请求
// 提供 rows 时先探测表头行，否则直接匹配 headers
type MatchColumnsRequest struct {
	DocType string     `json:"doc_type" binding:"required"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MatchColumnsResponse 表头匹配结果
type MatchColumnsResponse struct {
	HeaderRow int           `json:"header_row"`
	Mapping   grid.Mapping  `json:"mapping"`
	Columns   []grid.Column `json:"columns"`
}

func (h *ToolsHandler) ExtractSections(c *gin.Context) {
	filename, data, err := readUpload(c, h.maxUpload)
	if err != nil {
		respondError(c, "ExtractSections", err)
		return
	}
	format, err := officedoc.DetectContent(filename, data)
	if err != nil {
		respondError(c, "ExtractSections", fmt.Errorf("%w: %v", service.ErrInvalidFileType, err))
		return
	}
	res, err := service.ExtractSections(h.extractor, format, data)
	if err != nil {
		respondError(c, "ExtractSections", err)
		return
	}

	numbers := sectionparser.SectionNumbers(res.Sections)
	sections := make([]service.NumberedSection, len(res.Sections))
	for i, s := range res.Sections {
		sections[i] = service.NumberedSection{Section: s, Number: numbers[i]}
	}
	c.JSON(http.StatusOK, ExtractResponse{Filename: filename, Tier: res.Tier, Count: len(sections), Sections: sections})
}

func (h *ToolsHandler) MatchColumns(c *gin.Context) {
	var req MatchColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docType, err := grid.ParseDocType(req.DocType)
	if err != nil {
		respondError(c, "MatchColumns", err)
		return
	}
	columns, err := grid.DefaultColumns(docType)
	if err != nil {
		respondError(c, "MatchColumns", err)
		return
	}

	headers := req.Headers
	headerRow := 0
	if len(req.Rows) > 0 {
		cfg := h.engine.Config()
		headerRow = grid.DetectHeaderRow(req.Rows, grid.Keywords(docType), cfg.HeaderScanRows, cfg.HeaderMinHits)
		headers = req.Rows[headerRow]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "headers or rows required"})
		return
	}

	c.JSON(http.StatusOK, MatchColumnsResponse{
		HeaderRow: headerRow,
		Mapping:   grid.MatchColumns(headers, columns),
		Columns:   columns,
	})
}
