package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"delta-assistant/internal/endpoint"
)

// Assistant is the single control loop that drives the whole pipeline:
// frames in, endpointing, routing, reply out. All capture-session state
// lives in the endpointing machine and is touched only by this loop.
type Assistant struct {
	frames    FrameSource
	machine   *endpoint.Machine
	router    Router
	indicator Indicator
	notifier  Notifier
	logger    *slog.Logger
}

func NewAssistant(
	frames FrameSource,
	machine *endpoint.Machine,
	router Router,
	indicator Indicator,
	notifier Notifier,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		frames:    frames,
		machine:   machine,
		router:    router,
		indicator: indicator,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled or the audio source fails. Routing
// and device errors are logged, never fatal for the loop.
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("starting audio source", "source", a.frames.Name())
	if err := a.frames.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer a.frames.Stop()
	defer a.indicator.Off()

	a.indicator.Waiting()
	a.logger.Info("assistant ready, waiting for keyword")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := a.frames.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading audio frame: %w", err)
		}

		ev, err := a.machine.ProcessFrame(frame)
		if err != nil {
			a.logger.Error("processing frame", "error", err)
			continue
		}

		switch ev.Kind {
		case endpoint.EventKeyword:
			a.logger.Info("keyword detected, capturing command")
			a.indicator.Detected()
		case endpoint.EventUtterance:
			a.handleUtterance(ctx, ev)
		}
	}
}

func (a *Assistant) handleUtterance(ctx context.Context, ev endpoint.Event) {
	if ev.Text == "" {
		a.logger.Info("no command detected")
		a.indicator.Waiting()
		return
	}

	a.logger.Info("command captured", "text", ev.Text)

	// Frames arriving during routing are discarded on purpose: routing
	// is synchronous relative to the capture stream.
	a.frames.Pause()
	defer a.frames.Resume()

	a.indicator.Processing()

	reply, err := a.router.Route(ctx, ev.Text, ev.Trace)
	if err != nil {
		a.logger.Error("routing command", "error", err)
	} else if reply != "" {
		a.indicator.Responding()
		a.logger.Info("reply", "text", reply)
		if err := a.notifier.Notify(ctx, reply); err != nil {
			a.logger.Error("notifying reply", "error", err)
		}
	}

	ev.Trace.MarkResponseEnd(time.Now())
	a.logger.Info("latency", "breakdown", ev.Trace.Summary())

	a.indicator.Waiting()
}
