package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// StepStatus 审批步骤状态
type StepStatus string

const (
	StepStatusDraft    StepStatus = "draft"    // 仅存在于新增校验通过到提交之间，不落库
	StepStatusActive   StepStatus = "active"   // 参与审批人解析
	StepStatusInactive StepStatus = "inactive" // 解析时跳过，保留覆盖名单
)

// StepTransition 步骤状态迁移
type StepTransition struct {
	From StepStatus
	To   StepStatus
}

// StepStateMachine 审批步骤状态机：draft -> active/inactive，active <-> inactive
type StepStateMachine struct {
	allowedTransitions map[StepTransition]bool
}

// NewStepStateMachine 创建审批步骤状态机
func NewStepStateMachine() *StepStateMachine {
	sm := &StepStateMachine{
		allowedTransitions: make(map[StepTransition]bool),
	}

	transitions := []StepTransition{
		{StepStatusDraft, StepStatusActive},
		{StepStatusDraft, StepStatusInactive},
		{StepStatusActive, StepStatusInactive},
		{StepStatusInactive, StepStatusActive},
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// CanTransition 检查状态迁移是否合法，状态不变视为合法（幂等更新）
func (sm *StepStateMachine) CanTransition(from, to StepStatus) bool {
	if from == to {
		return from != StepStatusDraft
	}
	return sm.allowedTransitions[StepTransition{From: from, To: to}]
}

// Transition 执行状态迁移（带日志）
func (sm *StepStateMachine) Transition(from, to StepStatus, stepID uint) error {
	if !sm.CanTransition(from, to) {
		err := &InvalidStepStateTransitionError{From: string(from), To: string(to)}
		klog.V(6).Infof("审批步骤状态迁移被拒绝: stepID=%d, %s -> %s", stepID, from, to)
		return err
	}
	klog.V(6).Infof("审批步骤状态迁移: stepID=%d, %s -> %s", stepID, from, to)
	return nil
}

// ParseStepStatus 解析持久化状态，只接受 active/inactive
func ParseStepStatus(s string) (StepStatus, error) {
	switch StepStatus(s) {
	case StepStatusActive, StepStatusInactive:
		return StepStatus(s), nil
	default:
		return "", fmt.Errorf("invalid step status: %q", s)
	}
}

// InvalidStepStateTransitionError 无效的步骤状态迁移错误
type InvalidStepStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStepStateTransitionError) Error() string {
	return fmt.Sprintf("invalid approval step state transition: %s -> %s", e.From, e.To)
}
