package diag

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "requestID"
	operationIDKey contextKey = "operationID"
)

// ContextWithRequestID - create context with requestID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDValue - returns requestID value taken from context
func RequestIDValue(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// ContextWithOperationID - create context with an ID of a ledger operation
// (a single atomic unit). Logged along with the requestID
func ContextWithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, operationIDKey, operationID)
}

// OperationIDValue - returns operationID value taken from context
func OperationIDValue(ctx context.Context) string {
	return stringValue(ctx, operationIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	val, _ := ctx.Value(key).(string)
	return val
}

func contextData(ctx context.Context) map[string]string {
	var data map[string]string
	put := func(key string, value string) {
		if value == "" {
			return
		}
		if data == nil {
			data = map[string]string{}
		}
		data[key] = value
	}
	put(string(requestIDKey), RequestIDValue(ctx))
	put(string(operationIDKey), OperationIDValue(ctx))
	return data
}
