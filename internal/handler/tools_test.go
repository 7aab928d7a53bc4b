package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolsRouter() *gin.Engine {
	h := NewToolsHandler(sectionparser.NewExtractor(sectionparser.Options{}), grid.NewEngine(grid.Config{}), 1<<20)
	return newTestRouter(h.RegisterRoutes)
}

func TestToolsHandler_ExtractSections(t *testing.T) {
	r := toolsRouter()
	text := "ARTICLE 1 - Objet\na\nARTICLE 2 - Prix\nb\nARTICLE 3 - Délais\nc"

	body, ct := uploadBody(t, "ccap.txt", []byte(text))
	w := doRequest(r, http.MethodPost, "/api/tools/sections/extract", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sectionparser.TierArticle, resp.Tier)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "ARTICLE 2 - Prix", resp.Sections[1].Title)
	assert.Equal(t, "2", resp.Sections[1].Number)

	body, ct = uploadBody(t, "ccap.doc", []byte(text))
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPost, "/api/tools/sections/extract", body, ct).Code)

	body, ct = uploadBody(t, "ccap.docx", []byte("pas un zip"))
	assert.Equal(t, http.StatusUnprocessableEntity, doRequest(r, http.MethodPost, "/api/tools/sections/extract", body, ct).Code)
}

func TestToolsHandler_MatchColumns(t *testing.T) {
	r := toolsRouter()

	w := doJSON(r, http.MethodPost, "/api/tools/columns/match",
		`{"doc_type":"dqe","headers":["Désignation","Qté","Quantité","Montant HT","Observations"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MatchColumnsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.HeaderRow)
	id, ok := resp.Mapping.ColumnFor(0)
	require.True(t, ok)
	assert.Equal(t, grid.ColDesignation, id)
	id, ok = resp.Mapping.ColumnFor(2)
	require.True(t, ok)
	assert.Equal(t, grid.ColQuantite, id)
	assert.Contains(t, resp.Mapping.Unmapped, "Observations")
	assert.Contains(t, resp.Mapping.Unmapped, "Montant HT")
	assert.Len(t, resp.Columns, 11)
}

func TestToolsHandler_MatchColumnsDetectsHeaderRow(t *testing.T) {
	r := toolsRouter()

	w := doJSON(r, http.MethodPost, "/api/tools/columns/match",
		`{"doc_type":"BPU","rows":[["Bordereau des prix"],["Code","Désignation","Unité","Prix unitaire HT"],["A1","Béton","m3","10"]]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MatchColumnsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.HeaderRow)
	assert.Len(t, resp.Mapping.Matches, 4)
	assert.Empty(t, resp.Mapping.Unmapped)
}

func TestToolsHandler_MatchColumnsRejects(t *testing.T) {
	r := toolsRouter()
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/tools/columns/match", `{"doc_type":"XYZ","headers":["a"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/tools/columns/match", `{"doc_type":"DQE"}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/tools/columns/match", `{"headers":["a"]}`).Code)
}
