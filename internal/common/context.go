package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyFolder    contextKey = "patient_folder"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithFolder tags the context with the patient folder being processed
func WithFolder(ctx context.Context, folder string) context.Context {
	return context.WithValue(ctx, ContextKeyFolder, folder)
}

// FolderFromContext extracts the patient folder from context
func FolderFromContext(ctx context.Context) string {
	if folder, ok := ctx.Value(ContextKeyFolder).(string); ok {
		return folder
	}
	return ""
}
