package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridRouter(svc service.LotService) *gin.Engine {
	h := NewGridHandler(svc, 1<<20)
	return newTestRouter(h.RegisterRoutes)
}

func TestGridHandler_GetNormalizesKey(t *testing.T) {
	var got service.LotKey
	svc := &mockLotService{
		GetFunc: func(key service.LotKey) (*service.LotDocumentDTO, error) {
			got = key
			return &service.LotDocumentDTO{DocType: key.DocType, LotNumber: key.LotNumber}, nil
		},
	}
	r := gridRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/procedures/4/grids/dqe/2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.LotKey{ProcedureID: 4, DocType: grid.DocDQE, LotNumber: 2}, got)

	w = doRequest(r, http.MethodGet, "/api/procedures/4/grids/XYZ/2", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/procedures/4/grids/DQE/deux", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrProcedureNotFound, http.StatusNotFound},
		{service.ErrInvalidLot, http.StatusBadRequest},
		{fmt.Errorf("edit 0 (set_cell): %w", service.ErrCalculatedColumn), http.StatusBadRequest},
		{fmt.Errorf("edit 1 (remove_row): %w", service.ErrRowNotFound), http.StatusNotFound},
		{service.ErrLastColumn, http.StatusBadRequest},
		{fmt.Errorf("failed to save lot document: %w", assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &mockLotService{
			ApplyEditFunc: func(key service.LotKey, edits []grid.Edit) (*service.LotDocumentDTO, error) {
				return nil, tc.err
			},
		}
		w := doJSON(gridRouter(svc), http.MethodPost, "/api/procedures/1/grids/DQE/1/edit",
			`{"edits":[{"op":"set_cell","row_id":"r1","column_id":"montant_ht","value":"3"}]}`)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestGridHandler_EditRequiresEdits(t *testing.T) {
	w := doJSON(gridRouter(&mockLotService{}), http.MethodPost, "/api/procedures/1/grids/DQE/1/edit", `{"edits":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridHandler_Save(t *testing.T) {
	var saved *grid.Grid
	svc := &mockLotService{
		SaveFunc: func(key service.LotKey, g *grid.Grid) (*service.LotDocumentDTO, error) {
			saved = g
			return &service.LotDocumentDTO{Grid: g, Saved: true}, nil
		},
	}
	r := gridRouter(svc)

	w := doJSON(r, http.MethodPut, "/api/procedures/1/grids/BPU/1",
		`{"grid":{"columns":[{"id":"code","label":"Code"}],"rows":[{"id":"r1","cells":{"code":"A1"}}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, saved)
	assert.Equal(t, "A1", saved.Rows[0].Cells["code"])

	w = doJSON(r, http.MethodPut, "/api/procedures/1/grids/BPU/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridHandler_Import(t *testing.T) {
	svc := &mockLotService{
		ImportFunc: func(key service.LotKey, filename string, data []byte) (*service.LotImportResult, error) {
			switch filename {
			case "vide.xlsx":
				return nil, service.ErrEmptyWorkbook
			case "autre.xlsx":
				return nil, fmt.Errorf("%w: 4 headers", service.ErrNoColumnsMatched)
			case "casse.xlsx":
				return nil, fmt.Errorf("%w: zip: not a valid zip file", service.ErrParseFailed)
			}
			return &service.LotImportResult{Report: &grid.ImportReport{ImportedRows: 3}}, nil
		},
	}
	r := gridRouter(svc)
	path := "/api/procedures/1/grids/DQE/1/import"

	body, ct := uploadBody(t, "dqe.xlsx", []byte("PK"))
	w := doRequest(r, http.MethodPost, path, body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported_rows":3`)

	for _, name := range []string{"vide.xlsx", "autre.xlsx", "casse.xlsx"} {
		body, ct = uploadBody(t, name, []byte("PK"))
		w = doRequest(r, http.MethodPost, path, body, ct)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, name)
	}
}

func TestGridHandler_DuplicateIncomplete(t *testing.T) {
	var targets []int
	svc := &mockLotService{
		DuplicateFunc: func(key service.LotKey, g *grid.Grid, lots []int) (*service.DuplicateResult, error) {
			targets = lots
			if len(lots) > 2 {
				return nil, fmt.Errorf("%w: disk full", service.ErrDuplicateIncomplete)
			}
			return &service.DuplicateResult{TargetLots: lots}, nil
		},
	}
	r := gridRouter(svc)
	path := "/api/procedures/1/grids/DQE/1/duplicate"

	w := doJSON(r, http.MethodPost, path, `{"target_lots":[2,3]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{2, 3}, targets)

	w = doJSON(r, http.MethodPost, path, `{"target_lots":[2,3,4]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["source_saved"])

	w = doJSON(r, http.MethodPost, path, `{"target_lots":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridHandler_Export(t *testing.T) {
	svc := &mockLotService{
		ExportLotFunc: func(key service.LotKey) (*service.ExportFile, error) {
			return &service.ExportFile{
				Filename:    fmt.Sprintf("AO-1_%s_lot%d.xlsx", key.DocType, key.LotNumber),
				ContentType: service.ContentTypeXLSX,
				Data:        []byte("xlsx"),
			}, nil
		},
	}
	w := doRequest(gridRouter(svc), http.MethodGet, "/api/procedures/1/grids/DQE/1/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=AO-1_DQE_lot1.xlsx", w.Header().Get("Content-Disposition"))
	assert.Equal(t, service.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestGridHandler_ExportConsolidated(t *testing.T) {
	var gotLots []int
	var gotType grid.DocType
	svc := &mockLotService{
		ExportConsolidatedFunc: func(id uint, docType grid.DocType, lots []int) (*service.ExportFile, error) {
			gotLots, gotType = lots, docType
			if len(lots) == 0 {
				return nil, service.ErrNothingToExport
			}
			return &service.ExportFile{Filename: "AO-1_DQE_consolide.xlsx", ContentType: service.ContentTypeXLSX}, nil
		},
	}
	r := gridRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/procedures/1/grids/dqe/export?lots=1,%203", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1, 3}, gotLots)
	assert.Equal(t, grid.DocDQE, gotType)

	w = doRequest(r, http.MethodGet, "/api/procedures/1/grids/DQE/export", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/api/procedures/1/grids/DQE/export?lots=a", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridHandler_ListLots(t *testing.T) {
	w := doRequest(gridRouter(&mockLotService{}), http.MethodGet, "/api/procedures/1/grids/DPGF", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[1,2],"total":2}`, w.Body.String())
}
