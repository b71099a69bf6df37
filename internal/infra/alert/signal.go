// Package alert emits the operator cue raised when new pending orders arrive.
// Every signal is advisory: a failure is reported to the caller but nothing
// depends on the cue being heard.
package alert

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
)

type Signal interface {
	Alert(ctx context.Context) error
}

type SignalFunc func(ctx context.Context) error

func (f SignalFunc) Alert(ctx context.Context) error { return f(ctx) }

// Bell writes the ASCII BEL character, which terminals turn into a beep.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Alert(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write([]byte{'\a'})
	return err
}

// Multi fires every signal and joins their errors.
type Multi []Signal

func (m Multi) Alert(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Alert(ctx); err != nil {
			log.Printf("alert signal failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nop struct{}

func (nop) Alert(context.Context) error { return nil }

// Nop is a Signal that does nothing.
var Nop Signal = nop{}
