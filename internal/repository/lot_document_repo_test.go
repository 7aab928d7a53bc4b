package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/opendce/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotDocumentRepository_Upsert(t *testing.T) {
	repo := NewLotDocumentRepository(newTestDB(t))
	ctx := context.Background()
	key := DocKey{ProcedureID: 1, DocType: "DQE", LotNumber: 1}

	_, err := repo.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.Upsert(ctx, &model.LotDocument{ProcedureID: 1, DocType: "DQE", LotNumber: 1, Payload: `{"v":1}`}))
	require.NoError(t, repo.Upsert(ctx, &model.LotDocument{ProcedureID: 1, DocType: "DQE", LotNumber: 1, Payload: `{"v":2}`}))

	doc, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, doc.Payload)

	numbers, err := repo.ListLotNumbers(ctx, 1, "DQE")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, numbers)
}

func TestLotDocumentRepository_UpsertMany(t *testing.T) {
	repo := NewLotDocumentRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.LotDocument{ProcedureID: 1, DocType: "DQE", LotNumber: 3, Payload: "old"}))
	require.NoError(t, repo.UpsertMany(ctx, []model.LotDocument{
		{ProcedureID: 1, DocType: "DQE", LotNumber: 2, Payload: "copy"},
		{ProcedureID: 1, DocType: "DQE", LotNumber: 3, Payload: "copy"},
	}))
	require.NoError(t, repo.UpsertMany(ctx, nil))

	docs, err := repo.ListByNumbers(ctx, 1, "DQE", []int{3, 2, 9})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 2, docs[0].LotNumber)
	assert.Equal(t, "copy", docs[1].Payload)

	other, err := repo.ListLotNumbers(ctx, 1, "BPU")
	require.NoError(t, err)
	assert.Empty(t, other)
}
