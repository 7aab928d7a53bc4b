package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/stretchr/testify/require"
)

type mockProcedureService struct {
	CreateFunc       func(req service.CreateProcedureRequest) (*model.Procedure, error)
	GetFunc          func(id uint) (*model.Procedure, error)
	UpdateFunc       func(id uint, req service.UpdateProcedureRequest) (*model.Procedure, error)
	UpsertLotFunc    func(id uint, number int, req service.UpsertLotRequest) (*model.Lot, error)
	ListActivityFunc func(id uint, limit int) ([]model.Activity, error)
	ImportFunc       func(filename string, data []byte) (*service.ProcedureImportReport, error)
}

func (m *mockProcedureService) Create(ctx context.Context, req service.CreateProcedureRequest) (*model.Procedure, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(req)
	}
	return &model.Procedure{}, nil
}

func (m *mockProcedureService) List(ctx context.Context) ([]model.Procedure, error) {
	return nil, nil
}

func (m *mockProcedureService) Get(ctx context.Context, id uint) (*model.Procedure, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return &model.Procedure{ID: id}, nil
}

func (m *mockProcedureService) Update(ctx context.Context, id uint, req service.UpdateProcedureRequest) (*model.Procedure, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(id, req)
	}
	return &model.Procedure{ID: id, Title: req.Title}, nil
}

func (m *mockProcedureService) Delete(ctx context.Context, id uint) error {
	return nil
}

func (m *mockProcedureService) UpsertLot(ctx context.Context, id uint, number int, req service.UpsertLotRequest) (*model.Lot, error) {
	if m.UpsertLotFunc != nil {
		return m.UpsertLotFunc(id, number, req)
	}
	return &model.Lot{ProcedureID: id, Number: number}, nil
}

func (m *mockProcedureService) ListLots(ctx context.Context, id uint) ([]model.Lot, error) {
	return nil, nil
}

func (m *mockProcedureService) ListActivity(ctx context.Context, id uint, limit int) ([]model.Activity, error) {
	if m.ListActivityFunc != nil {
		return m.ListActivityFunc(id, limit)
	}
	return nil, nil
}

func (m *mockProcedureService) ImportProcedures(ctx context.Context, filename string, data []byte) (*service.ProcedureImportReport, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(filename, data)
	}
	return &service.ProcedureImportReport{}, nil
}

type mockLotService struct {
	GetFunc                func(key service.LotKey) (*service.LotDocumentDTO, error)
	SaveFunc               func(key service.LotKey, g *grid.Grid) (*service.LotDocumentDTO, error)
	ApplyEditFunc          func(key service.LotKey, edits []grid.Edit) (*service.LotDocumentDTO, error)
	ImportFunc             func(key service.LotKey, filename string, data []byte) (*service.LotImportResult, error)
	DuplicateFunc          func(key service.LotKey, g *grid.Grid, targets []int) (*service.DuplicateResult, error)
	ExportLotFunc          func(key service.LotKey) (*service.ExportFile, error)
	ExportConsolidatedFunc func(id uint, docType grid.DocType, lots []int) (*service.ExportFile, error)
}

func (m *mockLotService) Get(ctx context.Context, key service.LotKey) (*service.LotDocumentDTO, error) {
	if m.GetFunc != nil {
		return m.GetFunc(key)
	}
	return &service.LotDocumentDTO{}, nil
}

func (m *mockLotService) Save(ctx context.Context, key service.LotKey, g *grid.Grid) (*service.LotDocumentDTO, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(key, g)
	}
	return &service.LotDocumentDTO{Grid: g, Saved: true}, nil
}

func (m *mockLotService) ApplyEdit(ctx context.Context, key service.LotKey, edits []grid.Edit) (*service.LotDocumentDTO, error) {
	if m.ApplyEditFunc != nil {
		return m.ApplyEditFunc(key, edits)
	}
	return &service.LotDocumentDTO{}, nil
}

func (m *mockLotService) Import(ctx context.Context, key service.LotKey, filename string, data []byte) (*service.LotImportResult, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(key, filename, data)
	}
	return &service.LotImportResult{}, nil
}

func (m *mockLotService) Duplicate(ctx context.Context, key service.LotKey, g *grid.Grid, targets []int) (*service.DuplicateResult, error) {
	if m.DuplicateFunc != nil {
		return m.DuplicateFunc(key, g, targets)
	}
	return &service.DuplicateResult{TargetLots: targets}, nil
}

func (m *mockLotService) ExportLot(ctx context.Context, key service.LotKey) (*service.ExportFile, error) {
	if m.ExportLotFunc != nil {
		return m.ExportLotFunc(key)
	}
	return &service.ExportFile{}, nil
}

func (m *mockLotService) ExportConsolidated(ctx context.Context, id uint, docType grid.DocType, lots []int) (*service.ExportFile, error) {
	if m.ExportConsolidatedFunc != nil {
		return m.ExportConsolidatedFunc(id, docType, lots)
	}
	return &service.ExportFile{}, nil
}

func (m *mockLotService) ListLots(ctx context.Context, id uint, docType grid.DocType) ([]int, error) {
	return []int{1, 2}, nil
}

type mockSectionService struct {
	GetFunc    func(key service.SectionKey) (*service.SectionDocumentDTO, error)
	AddFunc    func(key service.SectionKey, position, level int, title string) (*service.SectionDocumentDTO, error)
	UpdateFunc func(key service.SectionKey, index int, patch service.SectionPatch) (*service.SectionDocumentDTO, error)
	MoveFunc   func(key service.SectionKey, from, to int) (*service.SectionDocumentDTO, error)
	ImportFunc func(key service.SectionKey, filename string, data []byte) (*service.SectionImportResult, error)
	ExportFunc func(key service.SectionKey) (*service.ExportFile, error)
}

func (m *mockSectionService) Get(ctx context.Context, key service.SectionKey) (*service.SectionDocumentDTO, error) {
	if m.GetFunc != nil {
		return m.GetFunc(key)
	}
	return &service.SectionDocumentDTO{}, nil
}

func (m *mockSectionService) Save(ctx context.Context, key service.SectionKey, sections []sectionparser.Section) (*service.SectionDocumentDTO, error) {
	return &service.SectionDocumentDTO{Saved: true}, nil
}

func (m *mockSectionService) AddSection(ctx context.Context, key service.SectionKey, position, level int, title string) (*service.SectionDocumentDTO, error) {
	if m.AddFunc != nil {
		return m.AddFunc(key, position, level, title)
	}
	return &service.SectionDocumentDTO{}, nil
}

func (m *mockSectionService) UpdateSection(ctx context.Context, key service.SectionKey, index int, patch service.SectionPatch) (*service.SectionDocumentDTO, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(key, index, patch)
	}
	return &service.SectionDocumentDTO{}, nil
}

func (m *mockSectionService) DeleteSection(ctx context.Context, key service.SectionKey, index int) (*service.SectionDocumentDTO, error) {
	return &service.SectionDocumentDTO{}, nil
}

func (m *mockSectionService) MoveSection(ctx context.Context, key service.SectionKey, from, to int) (*service.SectionDocumentDTO, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(key, from, to)
	}
	return &service.SectionDocumentDTO{}, nil
}

func (m *mockSectionService) Import(ctx context.Context, key service.SectionKey, filename string, data []byte) (*service.SectionImportResult, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(key, filename, data)
	}
	return &service.SectionImportResult{}, nil
}

func (m *mockSectionService) ExportMarkdown(ctx context.Context, key service.SectionKey) (*service.ExportFile, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(key)
	}
	return &service.ExportFile{}, nil
}

// newTestRouter 注册处理器路由到 /api
func newTestRouter(register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r.Group("/api"))
	return r
}

func doRequest(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	return doRequest(r, method, path, []byte(body), "application/json")
}

// uploadBody 构造只含 file 字段的 multipart 请求体
func uploadBody(t *testing.T, filename string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}
