// Package orgcontext threads tenant and actor identity through request
// handling as explicit context values.
package orgcontext

import "context"

type contextKey string

const (
	orgIDKey     contextKey = "org_id"
	userIDKey    contextKey = "user_id"
	readerIDKey  contextKey = "reader_id"
	requestIDKey contextKey = "request_id"
	ipAddressKey contextKey = "ip_address"
	userAgentKey contextKey = "user_agent"
)

func WithOrgID(ctx context.Context, orgID int64) context.Context {
	if orgID == 0 {
		return ctx
	}
	return context.WithValue(ctx, orgIDKey, orgID)
}

func OrgIDFromContext(ctx context.Context) (int64, bool) {
	value, ok := ctx.Value(orgIDKey).(int64)
	return value, ok && value != 0
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	if userID == 0 {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	value, ok := ctx.Value(userIDKey).(int64)
	return value, ok && value != 0
}

// WithReaderID tags the context with the authenticated badge-reader device.
func WithReaderID(ctx context.Context, readerID int64) context.Context {
	if readerID == 0 {
		return ctx
	}
	return context.WithValue(ctx, readerIDKey, readerID)
}

func ReaderIDFromContext(ctx context.Context) (int64, bool) {
	value, ok := ctx.Value(readerIDKey).(int64)
	return value, ok && value != 0
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	if ipAddress == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey, ipAddress)
}

func IPAddressFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ipAddressKey).(string)
	return value
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	if userAgent == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	value, _ := ctx.Value(userAgentKey).(string)
	return value
}
