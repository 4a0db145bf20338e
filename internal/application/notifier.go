package application

import (
	"context"
	"fmt"
	"io"
)

// Notifier delivers the spoken/printed reply of one command.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// ConsoleNotifier prints replies the way the assistant speaks them.
type ConsoleNotifier struct {
	Out io.Writer
}

func (c *ConsoleNotifier) Notify(_ context.Context, message string) error {
	_, err := fmt.Fprintf(c.Out, "[DELTA] %s\n", message)
	return err
}

// MultiNotifier fans a reply out to several sinks; all sinks are
// attempted, the first failure is reported.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, message string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
