package service

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки доменных операций
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"    // некорректный ввод
	KindConflict      ErrorKind = "conflict"      // пересечение по времени или недопустимый переход
	KindNotFound      ErrorKind = "not_found"     // пользователь, навык или сессия не найдены
	KindAuthorization ErrorKind = "authorization" // у пользователя нет прав на действие
	KindExpired       ErrorKind = "expired"       // код старта просрочен
	KindRateLimited   ErrorKind = "rate_limited"  // превышен лимит запросов
)

// Причины конфликтов при бронировании
const (
	ReasonTeacherUnavailable = "teacher unavailable"
	ReasonTeacherBusy        = "teacher busy"
	ReasonRequesterBusy      = "requester busy"
	ReasonConcurrentUpdate   = "session was modified concurrently"
)

// Error доменная ошибка с машинно-проверяемым видом и причиной для человека
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is позволяет сравнивать через errors.Is с шаблоном: пустая причина совпадает с любой
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrExpired       = &Error{Kind: KindExpired}
	ErrRateLimited   = &Error{Kind: KindRateLimited}

	ErrTeacherUnavailable = &Error{Kind: KindConflict, Reason: ReasonTeacherUnavailable}
	ErrTeacherBusy        = &Error{Kind: KindConflict, Reason: ReasonTeacherBusy}
	ErrRequesterBusy      = &Error{Kind: KindConflict, Reason: ReasonRequesterBusy}
	ErrConcurrentUpdate   = &Error{Kind: KindConflict, Reason: ReasonConcurrentUpdate}
)

// KindOf возвращает вид доменной ошибки или пустую строку для прочих ошибок
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind проверяет вид доменной ошибки
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: KindNotFound, Reason: what + " not found"}
}

func forbidden(reason string) error {
	return &Error{Kind: KindAuthorization, Reason: reason}
}

func expired(reason string) error {
	return &Error{Kind: KindExpired, Reason: reason}
}

// resultLabel метка результата для метрик
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
