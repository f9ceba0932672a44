// Package telemetry records timings and failures of commands and
// workflow steps for the lifetime of one process.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/buildhelper/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/buildhelper/internal/logging"
)

const instrumentationName = "github.com/YoshitsuguKoike/buildhelper"

// Status of a finished event
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Event is one finished operation. Events are never modified after
// they are appended.
type Event struct {
	Name       string         `yaml:"name"`
	Status     Status         `yaml:"status"`
	DurationMs float64        `yaml:"duration_ms"`
	Error      string         `yaml:"error,omitempty"`
	Metadata   map[string]any `yaml:"metadata,omitempty"`
}

// Collector is an append-only, ordered list of events.
type Collector struct {
	events []Event
	runID  string
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithTracer sends spans to tracer instead of the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Collector) { c.tracer = tracer }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates an empty collector with a fresh run id.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		runID:  ulid.Make().String(),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunID identifies this process run in every event's metadata.
func (c *Collector) RunID() string { return c.runID }

// Track runs fn inside a span named name and appends a success or error
// event. fn's error is returned unchanged.
func (c *Collector) Track(ctx context.Context, name string, metadata map[string]any, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("buildhelper.run_id", c.runID),
	))
	defer span.End()

	start := c.now()
	err := fn(ctx)
	durationMs := float64(c.now().Sub(start).Microseconds()) / 1000

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.append(name, StatusError, durationMs, err.Error(), metadata)
		logging.GetLogger().Debug("telemetry captured error for %s: %v", name, err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	c.append(name, StatusSuccess, durationMs, "", metadata)
	logging.GetLogger().Debug("telemetry recorded %s in %.2fms", name, durationMs)
	return nil
}

// Record appends an event measured elsewhere.
func (c *Collector) Record(name string, status Status, durationMs float64, errMsg string) {
	c.append(name, status, durationMs, errMsg, nil)
}

func (c *Collector) append(name string, status Status, durationMs float64, errMsg string, metadata map[string]any) {
	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["run_id"] = c.runID

	c.events = append(c.events, Event{
		Name:       name,
		Status:     status,
		DurationMs: durationMs,
		Error:      errMsg,
		Metadata:   meta,
	})
}

// Events returns a copy of the recorded events in order.
func (c *Collector) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Dump writes every event as a YAML list to path.
func (c *Collector) Dump(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(c.events)
	if err != nil {
		return fmt.Errorf("failed to encode telemetry: %w", err)
	}
	return file.WriteAtomic(fsys, path, data, 0o644)
}
