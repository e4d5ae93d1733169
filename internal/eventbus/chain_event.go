package eventbus

import (
	"context"
	"time"
)

type ChainEventType string

const (
	ChainEventStepAdded       ChainEventType = "StepAdded"
	ChainEventStepUpdated     ChainEventType = "StepUpdated"
	ChainEventIncludeUpserted ChainEventType = "IncludeUpserted"
	ChainEventIncludeUpdated  ChainEventType = "IncludeUpdated"
	ChainEventIncludeRemoved  ChainEventType = "IncludeRemoved"
	ChainEventExcludeUpserted ChainEventType = "ExcludeUpserted"
	ChainEventExcludeUpdated  ChainEventType = "ExcludeUpdated"
	ChainEventExcludeRemoved  ChainEventType = "ExcludeRemoved"
)

// AllChainEventTypes 订阅方按需全量注册
var AllChainEventTypes = []ChainEventType{
	ChainEventStepAdded,
	ChainEventStepUpdated,
	ChainEventIncludeUpserted,
	ChainEventIncludeUpdated,
	ChainEventIncludeRemoved,
	ChainEventExcludeUpserted,
	ChainEventExcludeUpdated,
	ChainEventExcludeRemoved,
}

// ChainEvent 审批链变更提交后发布
type ChainEvent struct {
	Type           ChainEventType
	FormTemplateID uint
	StepID         uint
	EmployeeCode   string
	Detail         string
	Operator       string
	OccurredAt     time.Time
}

type ChainEventHandler = Handler[ChainEvent]

// ChainEventBus 审批链事件总线
type ChainEventBus struct {
	*Bus[ChainEventType, ChainEvent]
}

func NewChainEventBus() *ChainEventBus {
	return &ChainEventBus{Bus: NewBus[ChainEventType, ChainEvent]()}
}

// PublishEvent 按事件自身的类型分发
func (b *ChainEventBus) PublishEvent(ctx context.Context, event ChainEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return b.Publish(ctx, event.Type, event)
}
