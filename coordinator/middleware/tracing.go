package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/round"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateRound(ctx context.Context, r round.Round) (resp round.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "create-round", trace.WithAttributes(
		attribute.Int("quorum", r.Quorum),
	))
	defer span.End()

	return tm.svc.CreateRound(ctx, r)
}

func (tm *tracing) GetRound(ctx context.Context, id string) (resp round.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, id)
}

func (tm *tracing) GetRoundStatus(ctx context.Context, id string) (resp round.Status, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-round-status", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetRoundStatus(ctx, id)
}

func (tm *tracing) ListRounds(ctx context.Context, offset, limit uint64) (resp round.Page, err error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, offset, limit)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, u round.Update) (resp round.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("round.id", u.RoundID),
		attribute.String("client.id", u.ClientID),
		attribute.Int("dim", len(u.Vector)),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, u)
}

func (tm *tracing) SubmitUpdateCBOR(ctx context.Context, data []byte) (resp round.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update-cbor", trace.WithAttributes(
		attribute.Int("data_size", len(data)),
	))
	defer span.End()

	return tm.svc.SubmitUpdateCBOR(ctx, data)
}

func (tm *tracing) SweepExpired(ctx context.Context) (err error) {
	ctx, span := tm.tracer.Start(ctx, "sweep-expired")
	defer span.End()

	return tm.svc.SweepExpired(ctx)
}

func (tm *tracing) Subscribe(ctx context.Context) (err error) {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
