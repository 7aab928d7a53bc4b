package subscriber

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/utils"
	"k8s.io/klog/v2"
)

// ActivitySubscriber 将表格与章节文档事件记录为操作日志
type ActivitySubscriber struct {
	repo repository.ActivityRepository
}

func NewActivitySubscriber(repo repository.ActivityRepository) *ActivitySubscriber {
	return &ActivitySubscriber{repo: repo}
}

func (s *ActivitySubscriber) RegisterLot(bus *eventbus.LotEventBus) {
	if bus == nil {
		return
	}
	for _, t := range []eventbus.LotEventType{
		eventbus.LotEventSaved,
		eventbus.LotEventImported,
		eventbus.LotEventDuplicated,
		eventbus.LotEventExported,
	} {
		bus.Subscribe(t, s.handleLotEvent)
	}
}

func (s *ActivitySubscriber) RegisterSection(bus *eventbus.SectionEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.SectionEventSaved, s.handleSectionEvent)
	bus.Subscribe(eventbus.SectionEventImported, s.handleSectionEvent)
}

func (s *ActivitySubscriber) handleLotEvent(ctx context.Context, event eventbus.LotEvent) error {
	if event.ProcedureID == 0 {
		return fmt.Errorf("程序ID为空")
	}
	detail := map[string]any{"rows": event.Rows}
	if len(event.TargetLots) > 0 {
		detail["target_lots"] = event.TargetLots
	}
	for k, v := range event.Detail {
		detail[k] = v
	}
	return s.record(ctx, &model.Activity{
		ProcedureID: event.ProcedureID,
		Kind:        string(event.Type),
		DocType:     event.DocType,
		LotNumber:   event.LotNumber,
		Detail:      utils.ToJSON(detail),
	})
}

func (s *ActivitySubscriber) handleSectionEvent(ctx context.Context, event eventbus.SectionEvent) error {
	if event.ProcedureID == 0 {
		return fmt.Errorf("程序ID为空")
	}
	detail := map[string]any{"sections": event.Sections}
	if event.Tier != "" {
		detail["tier"] = event.Tier
	}
	if event.SourceFile != "" {
		detail["source_file"] = event.SourceFile
	}
	return s.record(ctx, &model.Activity{
		ProcedureID: event.ProcedureID,
		Kind:        string(event.Type),
		DocType:     event.DocType,
		LotNumber:   event.LotNumber,
		Detail:      utils.ToJSON(detail),
	})
}

func (s *ActivitySubscriber) record(ctx context.Context, a *model.Activity) error {
	a.ID = uuid.NewString()
	if err := s.repo.Create(ctx, a); err != nil {
		klog.Errorf("记录操作日志失败: kind=%s, procedureID=%d, err=%v", a.Kind, a.ProcedureID, err)
		return err
	}
	klog.V(6).Infof("操作日志已记录: kind=%s, procedureID=%d, docType=%s, lot=%d", a.Kind, a.ProcedureID, a.DocType, a.LotNumber)
	return nil
}
