package events

import (
	"context"
	"errors"

	"github.com/mcoot/bughunt/internal/model"
)

// Publisher delivers domain events to subscribers outside the request path.
// Callers treat publishing as best-effort: a failed publish never fails the
// operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(ctx context.Context, event model.Event) error {
	return nil
}

// MultiPublisher fans an event out to several publishers
type MultiPublisher []Publisher

// Publish delivers to every publisher and joins their errors
func (m MultiPublisher) Publish(ctx context.Context, event model.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns a single publisher for the given publishers, skipping nils
func Combine(publishers ...Publisher) Publisher {
	var multi MultiPublisher
	for _, p := range publishers {
		if p != nil {
			multi = append(multi, p)
		}
	}
	switch len(multi) {
	case 0:
		return NopPublisher{}
	case 1:
		return multi[0]
	default:
		return multi
	}
}
