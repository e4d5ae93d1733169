package approval

import (
	"errors"
	"fmt"
)

// ErrorKind 审批链错误/诊断类型
type ErrorKind string

const (
	KindNotFound               ErrorKind = "NotFound"
	KindDuplicateOrder         ErrorKind = "DuplicateOrder"
	KindUnknownGroup           ErrorKind = "UnknownGroup"
	KindIndexOutOfRange        ErrorKind = "IndexOutOfRange"
	KindOrderCollisionDetected ErrorKind = "OrderCollisionDetected"
	KindDuplicateOverrideEntry ErrorKind = "DuplicateOverrideEntry"
	KindInactiveStepWarning    ErrorKind = "InactiveStepWarning"
	KindGroupInactive          ErrorKind = "GroupInactive"
)

// ChainError 带类型的审批链错误，errors.Is 按 Kind 匹配
type ChainError struct {
	Kind    ErrorKind
	Message string
}

func (e *ChainError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// 与 errors.Is 配合使用的哨兵错误
var (
	ErrNotFound               = &ChainError{Kind: KindNotFound}
	ErrDuplicateOrder         = &ChainError{Kind: KindDuplicateOrder}
	ErrUnknownGroup           = &ChainError{Kind: KindUnknownGroup}
	ErrIndexOutOfRange        = &ChainError{Kind: KindIndexOutOfRange}
	ErrDuplicateOverrideEntry = &ChainError{Kind: KindDuplicateOverrideEntry}
)

// NewError 创建指定类型的错误
func NewError(kind ErrorKind, format string, args ...any) *ChainError {
	return &ChainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误链中的审批链错误类型
func KindOf(err error) (ErrorKind, bool) {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// ResultKind 接口返回结果的标签
type ResultKind string

const (
	ResultOk              ResultKind = "Ok"
	ResultValidationError ResultKind = "ValidationError"
	ResultNotFound        ResultKind = "NotFound"
	ResultError           ResultKind = "Error"
)

// ResultKindOf 将错误归类为结果标签，nil 为 Ok
func ResultKindOf(err error) ResultKind {
	if err == nil {
		return ResultOk
	}
	kind, ok := KindOf(err)
	if !ok {
		return ResultError
	}
	switch kind {
	case KindNotFound:
		return ResultNotFound
	case KindDuplicateOrder, KindUnknownGroup, KindIndexOutOfRange, KindDuplicateOverrideEntry:
		return ResultValidationError
	default:
		return ResultError
	}
}

// Diagnostic 数据质量诊断，只记录日志，不会导致读取失败
type Diagnostic struct {
	Kind         ErrorKind `json:"kind"`
	StepID       uint      `json:"step_id,omitempty"`
	EmployeeCode string    `json:"employee_code,omitempty"`
	Message      string    `json:"message"`
}
