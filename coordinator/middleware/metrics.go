package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/round"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateRound(ctx context.Context, r round.Round) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-round").Add(1)
		mm.latency.With("method", "create-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateRound(ctx, r)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, id string) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, id)
}

func (mm *metricsMiddleware) GetRoundStatus(ctx context.Context, id string) (round.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round-status").Add(1)
		mm.latency.With("method", "get-round-status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRoundStatus(ctx, id)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, offset, limit)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, u round.Update) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, u)
}

func (mm *metricsMiddleware) SubmitUpdateCBOR(ctx context.Context, data []byte) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update-cbor").Add(1)
		mm.latency.With("method", "submit-update-cbor").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdateCBOR(ctx, data)
}

func (mm *metricsMiddleware) SweepExpired(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "sweep-expired").Add(1)
		mm.latency.With("method", "sweep-expired").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SweepExpired(ctx)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}
