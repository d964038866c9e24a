package util

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类，决定 HTTP 状态码
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

// ServiceError 面向调用方的业务错误（前置条件、归属、状态流转等），不重试
type ServiceError struct {
	Kind    ErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Is 同类同消息视为同一错误，便于 errors.Is 比较哨兵错误
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func Rejected(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ForbiddenError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误分类，非业务错误返回 0
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

var (
	ErrUserNotFound        = NotFoundError("utilizador não encontrado")
	ErrRequestNotFound     = NotFoundError("pedido não encontrado")
	ErrApplicationNotFound = NotFoundError("candidatura não encontrada")
	ErrReportNotFound      = NotFoundError("denúncia não encontrada")
	ErrNotificationMissing = NotFoundError("notificação não encontrada")

	ErrEmailRegistered      = ConflictError("este email já está registado")
	ErrInvalidCredentials   = Rejected("credenciais inválidas")
	ErrAccountDisabled      = ForbiddenError("conta bloqueada")
	ErrPermissionDenied     = ForbiddenError("sem permissão")
	ErrNotRequestOwner      = ForbiddenError("apenas o autor do pedido pode realizar esta ação")
	ErrNotApplicant         = ForbiddenError("apenas o candidato pode realizar esta ação")
	ErrAdminOnly            = ForbiddenError("apenas administradores")
	ErrChatAccessDenied     = ForbiddenError("sem acesso à conversa deste pedido")
	ErrNotReviewParticipant = ForbiddenError("apenas os participantes do pedido podem avaliar")

	ErrRequestNotOpen          = Rejected("o pedido já não está aberto")
	ErrRequestNotEditable      = Rejected("o pedido já não pode ser alterado")
	ErrInvalidTransition       = Rejected("transição de estado inválida")
	ErrInvalidCategory         = Rejected("categoria inválida")
	ErrInvalidBudget           = Rejected("orçamento inválido")
	ErrSelfApplication         = Rejected("não pode candidatar-se ao seu próprio pedido")
	ErrAlreadyApplied          = ConflictError("já se candidatou a este pedido")
	ErrApplicationNotPending   = Rejected("a candidatura já foi processada")
	ErrRequestNotDone          = Rejected("o pedido ainda não foi concluído")
	ErrNoAcceptedHelper        = Rejected("o pedido não tem ajudante aceite")
	ErrAlreadyReviewed         = ConflictError("já avaliou este utilizador neste pedido")
	ErrInvalidRating           = Rejected("a avaliação deve estar entre 1 e 5")
	ErrRevieweeMismatch        = Rejected("utilizador avaliado inválido")
	ErrEmptyMessage            = Rejected("a mensagem não pode estar vazia")
	ErrMessageTooLong          = Rejected("a mensagem é demasiado longa")
	ErrReportWithoutTarget     = Rejected("a denúncia precisa de um alvo")
	ErrReportNotPending        = Rejected("a denúncia já foi tratada")
	ErrUnknownModerationAction = Rejected("ação de moderação desconhecida")
	ErrActionNeedsRequest      = Rejected("esta ação exige um pedido alvo")
	ErrActionNeedsUser         = Rejected("esta ação exige um utilizador alvo")
)
