package xfault

import (
	"errors"
	"fmt"
)

// Kind 失败类别
type Kind int

const (
	// KindUnknown 未分类失败。默认可重试（与 xretry 的未知错误语义一致）。
	KindUnknown Kind = iota

	// KindTransient 瞬时网络失败，可重试。
	KindTransient

	// KindValidation 校验失败（4xx 类）。永不重试，立即上抛并附带字段级提示。
	KindValidation

	// KindUnavailable 服务不可用（熔断器打开）。不重试，走降级内容。
	KindUnavailable

	// KindConflict 版本冲突。不是终态失败，由冲突解决器接管。
	KindConflict

	// KindStale 队列条目超过 TTL 过期。丢弃并记录，不重试。
	KindStale

	// KindRecovery 自动恢复策略本身失败。始终上抛给用户并附带可选动作。
	KindRecovery
)

// String 返回类别的字符串表示，用于日志和事件。
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	case KindConflict:
		return "conflict"
	case KindStale:
		return "stale"
	case KindRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// 建议动作标识。展示层据此渲染引导文案，引擎只传递标识。
const (
	ActionRetry           = "retry"
	ActionContinueOffline = "continue-offline"
	ActionReviewConflicts = "review-conflicts"
	ActionCheckInput      = "check-input"
)

// Error 带分类和动作建议的失败。
type Error struct {
	kind    Kind
	actions []string
	fields  map[string]string // 校验失败时的字段级提示
	err     error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.err == nil {
		return e.kind.String() + " failure"
	}
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *Error) Unwrap() error {
	return e.err
}

// Kind 返回失败类别。
func (e *Error) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	return e.kind
}

// Retryable 实现 xretry 的可重试判定接口。
// 只有瞬时类失败值得重试；冲突有专门的处理路径，其余类别重试无意义。
func (e *Error) Retryable() bool {
	return e != nil && e.kind == KindTransient
}

// SuggestedActions 返回动作建议的副本。
func (e *Error) SuggestedActions() []string {
	if e == nil || len(e.actions) == 0 {
		return nil
	}
	out := make([]string, len(e.actions))
	copy(out, e.actions)
	return out
}

// Fields 返回字段级提示的副本（仅校验失败有值）。
func (e *Error) Fields() map[string]string {
	if e == nil || len(e.fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Transient 标记瞬时网络失败。
func Transient(err error) *Error {
	return &Error{kind: KindTransient, err: err, actions: []string{ActionRetry, ActionContinueOffline}}
}

// Validation 标记校验失败。fields 是字段名到提示文案的映射，可为 nil。
func Validation(err error, fields map[string]string) *Error {
	return &Error{kind: KindValidation, err: err, fields: fields, actions: []string{ActionCheckInput}}
}

// Unavailable 标记服务不可用（熔断器打开）。
func Unavailable(service string, err error) *Error {
	return &Error{
		kind:    KindUnavailable,
		err:     fmt.Errorf("service %s unavailable: %w", service, err),
		actions: []string{ActionContinueOffline, ActionRetry},
	}
}

// Conflict 标记版本冲突。
func Conflict(err error) *Error {
	return &Error{kind: KindConflict, err: err, actions: []string{ActionReviewConflicts}}
}

// Stale 标记过期的队列条目。
func Stale(err error) *Error {
	return &Error{kind: KindStale, err: err}
}

// Recovery 标记恢复策略失败。actions 为空时给默认的三选项。
func Recovery(err error, actions ...string) *Error {
	if len(actions) == 0 {
		actions = []string{ActionRetry, ActionContinueOffline, ActionReviewConflicts}
	}
	return &Error{kind: KindRecovery, err: err, actions: actions}
}

// KindOf 返回错误链中第一个 *Error 的类别；无分类时返回 KindUnknown。
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind()
	}
	return KindUnknown
}

// IsKind 判断错误链中是否存在指定类别的失败。
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind() == kind
	}
	return false
}
