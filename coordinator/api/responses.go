package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/bladesteam/blades/round"
)

var (
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundsResponse)(nil)
	_ supermq.Response = (*roundStatusResponse)(nil)
	_ supermq.Response = (*updateResponse)(nil)
)

type roundResponse struct {
	round.Round
	created bool
}

func (r roundResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r roundResponse) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/rounds/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r roundResponse) Empty() bool {
	return false
}

type listRoundsResponse struct {
	round.Page
}

func (l listRoundsResponse) Code() int {
	return http.StatusOK
}

func (l listRoundsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRoundsResponse) Empty() bool {
	return false
}

type roundStatusResponse struct {
	round.Status
}

func (r roundStatusResponse) Code() int {
	return http.StatusOK
}

func (r roundStatusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundStatusResponse) Empty() bool {
	return false
}

// updateResponse reports the round as it stands after the submission; once
// the quorum is met it already carries the aggregate.
type updateResponse struct {
	round.Round
}

func (u updateResponse) Code() int {
	return http.StatusAccepted
}

func (u updateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (u updateResponse) Empty() bool {
	return false
}
