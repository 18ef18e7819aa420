package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/round"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateRound(ctx context.Context, r round.Round) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", resp.ID),
				slog.Int("quorum", r.Quorum),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create round failed", args...)

			return
		}
		lm.logger.Info("Create round completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateRound(ctx, r)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, id string) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, id)
}

func (lm *loggingMiddleware) GetRoundStatus(ctx context.Context, id string) (resp round.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round status failed", args...)

			return
		}
		lm.logger.Info("Get round status completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRoundStatus(ctx, id)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (resp round.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, offset, limit)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, u round.Update) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.String("round_id", u.RoundID),
				slog.String("client_id", u.ClientID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		args = append(args, slog.String("state", resp.State.String()))
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, u)
}

func (lm *loggingMiddleware) SubmitUpdateCBOR(ctx context.Context, data []byte) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("data_size", len(data)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit CBOR update failed", args...)

			return
		}
		lm.logger.Info("Submit CBOR update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdateCBOR(ctx, data)
}

func (lm *loggingMiddleware) SweepExpired(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Sweep expired rounds failed", args...)

			return
		}
		lm.logger.Debug("Sweep expired rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.SweepExpired(ctx)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe to update topic failed", args...)

			return
		}
		lm.logger.Info("Subscribe to update topic completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
