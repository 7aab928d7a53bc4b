package subscriber

import (
	"context"
	"errors"
	"testing"

	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockActivityRepo struct {
	created []*model.Activity
	err     error
}

func (m *mockActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, a)
	return nil
}

func (m *mockActivityRepo) ListByProcedure(ctx context.Context, procedureID uint, limit int) ([]model.Activity, error) {
	return nil, nil
}

func TestActivitySubscriber_LotEvents(t *testing.T) {
	repo := &mockActivityRepo{}
	bus := eventbus.NewLotEventBus()
	NewActivitySubscriber(repo).RegisterLot(bus)

	err := bus.Publish(context.Background(), eventbus.LotEventDuplicated, eventbus.LotEvent{
		Type:        eventbus.LotEventDuplicated,
		ProcedureID: 7,
		DocType:     "DQE",
		LotNumber:   1,
		TargetLots:  []int{2, 3},
		Rows:        4,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	a := repo.created[0]
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "lot.duplicated", a.Kind)
	assert.Equal(t, uint(7), a.ProcedureID)
	assert.JSONEq(t, `{"rows":4,"target_lots":[2,3]}`, a.Detail)
}

func TestActivitySubscriber_SectionEvents(t *testing.T) {
	repo := &mockActivityRepo{}
	bus := eventbus.NewSectionEventBus()
	NewActivitySubscriber(repo).RegisterSection(bus)

	require.NoError(t, bus.Publish(context.Background(), eventbus.SectionEventImported, eventbus.SectionEvent{
		Type:        eventbus.SectionEventImported,
		ProcedureID: 1,
		DocType:     "CCAP",
		Sections:    12,
		Tier:        "article",
		SourceFile:  "ccap.docx",
	}))
	require.Len(t, repo.created, 1)
	assert.JSONEq(t, `{"sections":12,"tier":"article","source_file":"ccap.docx"}`, repo.created[0].Detail)
}

func TestActivitySubscriber_Errors(t *testing.T) {
	repo := &mockActivityRepo{err: errors.New("db down")}
	bus := eventbus.NewLotEventBus()
	NewActivitySubscriber(repo).RegisterLot(bus)

	err := bus.Publish(context.Background(), eventbus.LotEventSaved, eventbus.LotEvent{Type: eventbus.LotEventSaved, ProcedureID: 1})
	assert.Error(t, err)

	err = bus.Publish(context.Background(), eventbus.LotEventSaved, eventbus.LotEvent{Type: eventbus.LotEventSaved})
	assert.Error(t, err)
}
