package ctxutil

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is the caller identity resolved by the auth middleware.
type RequestData struct {
	UserID     uuid.UUID
	Role       string
	Department string
}

const (
	RoleLearner  = "learner"
	RoleReviewer = "reviewer"
	RoleOperator = "operator"
)

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

func (rd *RequestData) IsOperator() bool {
	return rd != nil && strings.EqualFold(rd.Role, RoleOperator)
}

func (rd *RequestData) CanReview() bool {
	return rd != nil && (strings.EqualFold(rd.Role, RoleReviewer) || strings.EqualFold(rd.Role, RoleOperator))
}
