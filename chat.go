package agstream

import (
	"errors"
	"time"

	"pkt.systems/agstream/client"
	"pkt.systems/agstream/core"
	"pkt.systems/agstream/internal/eventbus"
	"pkt.systems/pslog"
)

// ChatConfig configures a chat client stack.
type ChatConfig struct {
	Client client.Config
}

// ChatDeps captures optional dependencies of a Chat.
type ChatDeps struct {
	Logger    pslog.Logger
	EventSink core.EventSink
	Options   []client.Option
}

// Chat composes the HTTP client, the session state machine and the update bus.
type Chat struct {
	client  *client.Client
	session *core.Session
	bus     *eventbus.Bus
}

// NewChat builds a Chat from cfg.
func NewChat(cfg ChatConfig, deps ChatDeps) (*Chat, error) {
	if cfg.Client.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if cfg.Client.RequestTimeout <= 0 {
		cfg.Client.RequestTimeout = 30 * time.Second
	}
	c, err := client.New(cfg.Client, deps.Options...)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(deps.Logger)
	sinks := core.Fanout{bus}
	if deps.EventSink != nil {
		sinks = append(sinks, deps.EventSink)
	}
	session := core.NewSession(core.SessionDeps{
		Backend:   c,
		EventSink: sinks,
		Logger:    deps.Logger,
	})
	return &Chat{client: c, session: session, bus: bus}, nil
}

// Session returns the conversation state machine.
func (c *Chat) Session() *core.Session {
	return c.session
}

// Bus returns the update bus fed by the session.
func (c *Chat) Bus() *eventbus.Bus {
	return c.bus
}

// Client returns the underlying HTTP client.
func (c *Chat) Client() *client.Client {
	return c.client
}
