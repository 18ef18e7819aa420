package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/bladesteam/blades/coordinator"
	pkgerrors "github.com/bladesteam/blades/pkg/errors"
)

func createRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.CreateRound(ctx, req.Round)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			Round:   r,
			created: true,
		}, nil
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return listRoundsResponse{}, err
		}

		return listRoundsResponse{
			Page: page,
		}, nil
	}
}

func getRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.GetRound(ctx, req.id)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			Round: r,
		}, nil
	}
}

func getRoundStatusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return roundStatusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundStatusResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		status, err := svc.GetRoundStatus(ctx, req.id)
		if err != nil {
			return roundStatusResponse{}, err
		}

		return roundStatusResponse{
			Status: status,
		}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(updateReq)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.SubmitUpdate(ctx, req.Update)
		if err != nil {
			return updateResponse{}, err
		}

		return updateResponse{
			Round: r,
		}, nil
	}
}

func submitUpdateCBOREndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		data, ok := request.([]byte)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		r, err := svc.SubmitUpdateCBOR(ctx, data)
		if err != nil {
			return updateResponse{}, err
		}

		return updateResponse{
			Round: r,
		}, nil
	}
}
