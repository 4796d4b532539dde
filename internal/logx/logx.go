package logx

import (
	"context"

	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	threadKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithThread annotates the logger with the thread id if present.
func WithThread(log pslog.Logger, threadID schema.ThreadID) pslog.Logger {
	if threadID != "" {
		log = log.With("thread", string(threadID))
	}
	return log
}

// WithRun annotates the logger with the run id if present.
func WithRun(log pslog.Logger, runID schema.RunID) pslog.Logger {
	if runID != "" {
		log = log.With("run", string(runID))
	}
	return log
}

// CtxThread returns the context logger annotated with the thread id, unless
// the context already carries a logger for that thread.
func CtxThread(ctx context.Context, threadID schema.ThreadID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if threadID == "" {
		return log
	}
	if current, ok := ctx.Value(threadKey).(schema.ThreadID); ok && current == threadID {
		return log
	}
	return log.With("thread", string(threadID))
}

// ContextWithThread stores the thread marker on the context for log de-duplication.
func ContextWithThread(ctx context.Context, threadID schema.ThreadID) context.Context {
	if ctx == nil || threadID == "" {
		return ctx
	}
	return context.WithValue(ctx, threadKey, threadID)
}

// ContextWithThreadLogger attaches a logger already annotated with threadID.
func ContextWithThreadLogger(ctx context.Context, log pslog.Logger, threadID schema.ThreadID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithThread(ctx, threadID)
}
