package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// ProcedureStatus 程序状态
type ProcedureStatus string

const (
	ProcedureDraft     ProcedureStatus = "draft"     // 编写中
	ProcedurePublished ProcedureStatus = "published" // 已发布给投标人
	ProcedureClosed    ProcedureStatus = "closed"    // 已截止
)

// ProcedureTransition 程序状态迁移
type ProcedureTransition struct {
	From ProcedureStatus
	To   ProcedureStatus
}

// ProcedureStateMachine 程序状态机
type ProcedureStateMachine struct {
	allowedTransitions map[ProcedureTransition]bool
}

// NewProcedureStateMachine 创建程序状态机
func NewProcedureStateMachine() *ProcedureStateMachine {
	sm := &ProcedureStateMachine{
		allowedTransitions: make(map[ProcedureTransition]bool),
	}

	// draft -> published -> closed
	transitions := []ProcedureTransition{
		{ProcedureDraft, ProcedurePublished},
		{ProcedurePublished, ProcedureClosed},

		// 撤回发布
		{ProcedurePublished, ProcedureDraft},
		// 截止后重新开放
		{ProcedureClosed, ProcedurePublished},
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// ParseProcedureStatus 校验状态值
func ParseProcedureStatus(s string) (ProcedureStatus, bool) {
	switch st := ProcedureStatus(s); st {
	case ProcedureDraft, ProcedurePublished, ProcedureClosed:
		return st, true
	}
	return "", false
}

// CanTransition 检查状态迁移是否合法
func (sm *ProcedureStateMachine) CanTransition(from, to ProcedureStatus) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[ProcedureTransition{From: from, To: to}]
}

// Transition 验证状态迁移（带日志）
func (sm *ProcedureStateMachine) Transition(from, to ProcedureStatus, procedureID uint) error {
	if !sm.CanTransition(from, to) {
		err := &InvalidProcedureStateTransitionError{From: string(from), To: string(to)}
		klog.V(6).Infof("程序状态迁移被拒绝: procedureID=%d, %s -> %s", procedureID, from, to)
		return err
	}
	klog.V(6).Infof("程序状态迁移成功: procedureID=%d, %s -> %s", procedureID, from, to)
	return nil
}

// InvalidProcedureStateTransitionError 无效的程序状态迁移
type InvalidProcedureStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidProcedureStateTransitionError) Error() string {
	return fmt.Sprintf("invalid procedure state transition: %s -> %s", e.From, e.To)
}
