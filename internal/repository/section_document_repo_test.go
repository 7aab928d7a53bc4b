package repository

import (
	"context"
	"testing"

	"github.com/opendce/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionDocumentRepository_Upsert(t *testing.T) {
	repo := NewSectionDocumentRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.SectionDocument{ProcedureID: 4, DocType: "CCAP", LotNumber: 0, Payload: "[]"}))
	require.NoError(t, repo.Upsert(ctx, &model.SectionDocument{ProcedureID: 4, DocType: "CCAP", LotNumber: 0, Payload: `[{"title":"x"}]`, SourceFile: "ccap.docx", Tier: "markup"}))

	doc, err := repo.Get(ctx, DocKey{ProcedureID: 4, DocType: "CCAP", LotNumber: 0})
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"x"}]`, doc.Payload)
	assert.Equal(t, "ccap.docx", doc.SourceFile)
	assert.Equal(t, "markup", doc.Tier)
}

func TestActivityRepository_ListByProcedure(t *testing.T) {
	repo := NewActivityRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Activity{ID: "a1", ProcedureID: 1, Kind: "lot.saved"}))
	require.NoError(t, repo.Create(ctx, &model.Activity{ID: "a2", ProcedureID: 1, Kind: "lot.exported"}))
	require.NoError(t, repo.Create(ctx, &model.Activity{ID: "a3", ProcedureID: 2, Kind: "lot.saved"}))

	list, err := repo.ListByProcedure(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListByProcedure(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
