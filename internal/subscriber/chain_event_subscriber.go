package subscriber

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/weibaohui/recruitflow/internal/eventbus"
	"github.com/weibaohui/recruitflow/internal/model"
	"k8s.io/klog/v2"
)

// maxDetailRunes 与 ChainAuditLog.Detail 列长度一致
const maxDetailRunes = 1000

// ChainEventSubscriber 把审批链变更写入审计日志
type ChainEventSubscriber struct {
	auditRepo auditLogWriter
}

type auditLogWriter interface {
	Create(ctx context.Context, log *model.ChainAuditLog) error
}

func NewChainEventSubscriber(auditRepo auditLogWriter) *ChainEventSubscriber {
	return &ChainEventSubscriber{auditRepo: auditRepo}
}

func (s *ChainEventSubscriber) Register(bus *eventbus.ChainEventBus) {
	if bus == nil {
		return
	}
	for _, eventType := range eventbus.AllChainEventTypes {
		bus.Subscribe(eventType, s.handleChainEvent)
	}
}

func (s *ChainEventSubscriber) handleChainEvent(ctx context.Context, event eventbus.ChainEvent) error {
	if event.FormTemplateID == 0 {
		return fmt.Errorf("模板ID为空")
	}
	detail := event.Detail
	if detail == "" && event.EmployeeCode != "" {
		detail = fmt.Sprintf("employeeCode=%s", event.EmployeeCode)
	}
	detail = truncateRunes(detail, maxDetailRunes)
	log := &model.ChainAuditLog{
		FormTemplateID: event.FormTemplateID,
		StepID:         event.StepID,
		Action:         string(event.Type),
		Detail:         detail,
		Operator:       event.Operator,
	}
	if !event.OccurredAt.IsZero() {
		log.CreatedAt = event.OccurredAt
	}
	if err := s.auditRepo.Create(ctx, log); err != nil {
		klog.Errorf("审批链事件处理失败: type=%s, templateID=%d, stepID=%d, error=%v", event.Type, event.FormTemplateID, event.StepID, err)
		return err
	}
	klog.V(6).Infof("审批链事件已记录: type=%s, templateID=%d, stepID=%d, logID=%d", event.Type, event.FormTemplateID, event.StepID, log.ID)
	return nil
}

// truncateRunes 按字符截断，不拆分多字节字符
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
