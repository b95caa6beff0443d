package ctxutil

import "context"

type requestDataKey struct{}

// RequestData carries the authenticated caller, when auth is enabled.
type RequestData struct {
	TokenString string
	Actor       string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorFromContext returns the authenticated actor, or "".
func ActorFromContext(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.Actor
	}
	return ""
}
