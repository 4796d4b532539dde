package main

import (
	"context"
	"io"
	"sync"

	"pkt.systems/agstream"
	"pkt.systems/agstream/client"
	"pkt.systems/agstream/internal/appconfig"
	"pkt.systems/agstream/internal/eventbus"
	"pkt.systems/agstream/internal/format"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

func openChat(ctx context.Context, configPath string) (*agstream.Chat, appconfig.Config, error) {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	chat, err := agstream.NewChat(agstream.ChatConfig{Client: toClientConfig(cfg.API)}, agstream.ChatDeps{
		Logger: pslog.Ctx(ctx),
	})
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	return chat, cfg, nil
}

func toClientConfig(cfg appconfig.APIConfig) client.Config {
	return client.Config{
		BaseURL:        cfg.BaseURL,
		ChatPath:       cfg.ChatPath,
		HistoriesPath:  cfg.HistoriesPath,
		HistoryPath:    cfg.HistoryPath,
		Headers:        cfg.Headers,
		RequestTimeout: cfg.RequestTimeout(),
	}
}

// updatePrinter renders bus updates on its own goroutine and signals when
// a send finishes.
type updatePrinter struct {
	idle chan struct{}
	done chan struct{}
	stop func()
}

// startPrinter subscribes to every thread on bus and prints updates to out.
func startPrinter(bus *eventbus.Bus, out io.Writer, opts format.LiveOptions) *updatePrinter {
	updates, cancel := bus.Subscribe(eventbus.AllThreads)
	p := &updatePrinter{
		idle: make(chan struct{}, 1),
		done: make(chan struct{}),
		stop: cancel,
	}
	go p.run(updates, format.NewLivePrinter(out, opts))
	return p
}

func (p *updatePrinter) run(updates <-chan schema.SessionUpdate, printer *format.LivePrinter) {
	defer close(p.done)
	for update := range updates {
		printer.Print(update)
		if update.Type == schema.UpdateSending && !update.Sending {
			select {
			case p.idle <- struct{}{}:
			default:
			}
		}
	}
	printer.Flush()
}

// reset drops a pending idle signal left by an earlier send.
func (p *updatePrinter) reset() {
	select {
	case <-p.idle:
	default:
	}
}

// waitIdle blocks until the printer has rendered the end of the current send.
func (p *updatePrinter) waitIdle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.idle:
		return nil
	}
}

// Close unsubscribes and waits for buffered updates to be printed.
func (p *updatePrinter) Close() {
	p.stop()
	<-p.done
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
