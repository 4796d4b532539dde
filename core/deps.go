package core

import (
	"context"

	"pkt.systems/agstream/client"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// ChatBackend is the server side of a session. *client.Client implements it.
type ChatBackend interface {
	SendMessage(ctx context.Context, threadID schema.ThreadID, payload client.SendPayload, handler any) (*client.Connection, error)
	ListHistories(ctx context.Context) ([]schema.HistoryItem, error)
	GetHistory(ctx context.Context, threadID schema.ThreadID) ([]schema.Message, error)
}

// SessionDeps captures the dependencies of a Session.
type SessionDeps struct {
	Backend   ChatBackend
	EventSink EventSink
	Logger    pslog.Logger
}
