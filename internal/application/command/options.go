// Package command contains write operations (CQRS - Commands).
package command

import (
	"time"

	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/pkg/logger"
)

// AwardRecorder receives award outcomes for metrics.
type AwardRecorder interface {
	BadgeAwarded(badgeID string)
	AwardConflict(badgeID string)
	AwardFailed(badgeID string)
}

type nopRecorder struct{}

func (nopRecorder) BadgeAwarded(string)  {}
func (nopRecorder) AwardConflict(string) {}
func (nopRecorder) AwardFailed(string)   {}

type nopPublisher struct{}

func (nopPublisher) Publish(shared.Event) error { return nil }

// options are shared by all command handlers.
type options struct {
	now       func() time.Time
	location  *time.Location
	log       *logger.Logger
	publisher shared.EventPublisher
	recorder  AwardRecorder
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		location:  time.UTC,
		log:       logger.Nop(),
		publisher: nopPublisher{},
		recorder:  nopRecorder{},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a command handler.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation sets the location whose calendar defines "today".
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p shared.EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithRecorder sets the award metrics recorder.
func WithRecorder(r AwardRecorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}
