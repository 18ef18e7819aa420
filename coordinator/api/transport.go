package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/pkg/api"
)

const svcName = "coordinator"

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/rounds", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createRoundEndpoint(svc),
			decodeRoundReq,
			api.EncodeResponse,
			opts...,
		), "create-round").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRoundsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-rounds").ServeHTTP)
		r.Route("/{roundID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRoundEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "get-round").ServeHTTP)
			r.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
				getRoundStatusEndpoint(svc),
				decodeEntityReq("roundID"),
				api.EncodeResponse,
				opts...,
			), "get-round-status").ServeHTTP)
			r.Post("/updates", otelhttp.NewHandler(kithttp.NewServer(
				submitUpdateEndpoint(svc),
				decodeUpdateReq,
				api.EncodeResponse,
				opts...,
			), "submit-update").ServeHTTP)
		})
	})

	// CBOR submissions carry the round id inside the payload, so the
	// route is not nested under /rounds.
	mux.Post("/updates/cbor", otelhttp.NewHandler(kithttp.NewServer(
		submitUpdateCBOREndpoint(svc),
		decodeUpdateCBORReq,
		api.EncodeResponse,
		opts...,
	), "submit-update-cbor").ServeHTTP)

	mux.Get("/health", supermq.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req roundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	// The path segment wins over whatever the payload claims.
	req.RoundID = chi.URLParam(r, "roundID")

	return req, nil
}

func decodeUpdateCBORReq(_ context.Context, r *http.Request) (any, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, api.ContentTypeCBOR) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return data, nil
}
