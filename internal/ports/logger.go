package ports

import "context"

// Logger is the structured logger used by the ledger, the evaluator sweep and the CLI.
// The std-log adapter backs LOG_FORMAT=text and the zap adapter backs LOG_FORMAT=json.
// Fields are merged left to right; later keys win.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info is used for trade fills, closes, status transitions and sweep summaries.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err alongside msg. A nil err is allowed.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
