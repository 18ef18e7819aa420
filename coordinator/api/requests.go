package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/bladesteam/blades/aggregator"
	"github.com/bladesteam/blades/coordinator"
	"github.com/bladesteam/blades/round"
)

type roundReq struct {
	round.Round `json:",inline"`
}

func (r *roundReq) validate() error {
	if r.Quorum < 1 {
		return coordinator.ErrInvalidQuorum
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type updateReq struct {
	round.Update `json:",inline"`
}

func (u *updateReq) validate() error {
	if u.RoundID == "" {
		return apiutil.ErrMissingID
	}
	if u.ClientID == "" {
		return coordinator.ErrMissingClientID
	}
	if len(u.Vector) == 0 {
		return aggregator.ErrEmptyUpdate
	}

	return nil
}
