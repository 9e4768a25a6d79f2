package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mautichost/provisiond/internal/domain"
)

// TracingSubmitter wraps a domain.StackSubmitter with OpenTelemetry tracing.
// The remote stack creation is the long pole of every provisioning pipeline,
// so its spans carry the stack name and descriptor size.
type TracingSubmitter struct {
	next   domain.StackSubmitter
	tracer trace.Tracer
}

// Compile-time check: TracingSubmitter implements domain.StackSubmitter.
var _ domain.StackSubmitter = (*TracingSubmitter)(nil)

// NewTracingSubmitter creates a tracing decorator around the given submitter.
func NewTracingSubmitter(next domain.StackSubmitter) *TracingSubmitter {
	return &TracingSubmitter{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingSubmitter) CreateStack(ctx context.Context, name, descriptor string) (domain.Stack, error) {
	ctx, span := s.tracer.Start(ctx, "StackSubmitter.CreateStack",
		trace.WithAttributes(
			attribute.String("stack.name", name),
			attribute.Int("stack.descriptor_bytes", len(descriptor)),
		),
	)
	defer span.End()

	stack, err := s.next.CreateStack(ctx, name, descriptor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("stack.id", stack.ID))
	}
	return stack, err
}

func (s *TracingSubmitter) GetStack(ctx context.Context, name string) (*domain.Stack, error) {
	ctx, span := s.tracer.Start(ctx, "StackSubmitter.GetStack",
		trace.WithAttributes(attribute.String("stack.name", name)),
	)
	defer span.End()

	stack, err := s.next.GetStack(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("stack.found", stack != nil))
	}
	return stack, err
}

func (s *TracingSubmitter) DeleteStack(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "StackSubmitter.DeleteStack",
		trace.WithAttributes(attribute.Int64("stack.id", id)),
	)
	defer span.End()

	err := s.next.DeleteStack(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
