package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

var requestDataKey = ctxKey{}

// Roles carried on the session token.
const (
	RoleClient = "client"
	RoleStaff  = "staff"
)

type RequestData struct {
	ClientID uuid.UUID
	Email    string
	Role     string
}

func (rd *RequestData) IsStaff() bool {
	return rd != nil && rd.Role == RoleStaff
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
