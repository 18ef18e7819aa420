package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	roundsEndpoint  = "/rounds"
	updatesEndpoint = "/updates"
	cborEndpoint    = "/updates/cbor"
)

type Round struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name,omitempty"`
	Quorum      int           `json:"quorum"`
	Dim         int           `json:"dim,omitempty"`
	State       uint8         `json:"state,omitempty"`
	Updates     []Update      `json:"updates,omitempty"`
	Aggregate   []float64     `json:"aggregate,omitempty"`
	Weights     []float64     `json:"weights,omitempty"`
	Error       string        `json:"error,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Update struct {
	RoundID    string         `json:"round_id" cbor:"round_id"`
	ClientID   string         `json:"client_id" cbor:"client_id"`
	Vector     []float64      `json:"vector" cbor:"vector"`
	NumSamples int            `json:"num_samples,omitempty" cbor:"num_samples,omitempty"`
	Metrics    map[string]any `json:"metrics,omitempty" cbor:"metrics,omitempty"`
	ReceivedAt time.Time      `json:"received_at,omitempty" cbor:"received_at,omitempty"`
}

type RoundStatus struct {
	RoundID   string `json:"round_id"`
	State     string `json:"state"`
	Received  int    `json:"received"`
	Quorum    int    `json:"quorum"`
	Completed bool   `json:"completed"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

func (sdk *bladesSDK) CreateRound(round Round) (Round, error) {
	data, err := json.Marshal(round)
	if err != nil {
		return Round{}, err
	}

	url := sdk.coordinatorURL + roundsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, CTJSON, data, http.StatusCreated)
	if err != nil {
		return Round{}, err
	}

	var r Round
	if err := json.Unmarshal(body, &r); err != nil {
		return Round{}, err
	}

	return r, nil
}

func (sdk *bladesSDK) GetRound(id string) (Round, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return Round{}, err
	}

	var r Round
	if err := json.Unmarshal(body, &r); err != nil {
		return Round{}, err
	}

	return r, nil
}

func (sdk *bladesSDK) ListRounds(offset, limit uint64) (RoundPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.coordinatorURL + roundsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var page RoundPage
	if err := json.Unmarshal(body, &page); err != nil {
		return RoundPage{}, err
	}

	return page, nil
}

func (sdk *bladesSDK) GetRoundStatus(id string) (RoundStatus, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + id + "/status"

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return RoundStatus{}, err
	}

	var status RoundStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return RoundStatus{}, err
	}

	return status, nil
}

func (sdk *bladesSDK) SubmitUpdate(update Update) (Round, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return Round{}, err
	}

	url := sdk.coordinatorURL + roundsEndpoint + "/" + update.RoundID + updatesEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, CTJSON, data, http.StatusAccepted)
	if err != nil {
		return Round{}, err
	}

	var r Round
	if err := json.Unmarshal(body, &r); err != nil {
		return Round{}, err
	}

	return r, nil
}

func (sdk *bladesSDK) SubmitUpdateCBOR(update Update) (Round, error) {
	data, err := cbor.Marshal(update)
	if err != nil {
		return Round{}, err
	}

	url := sdk.coordinatorURL + cborEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, CTCBOR, data, http.StatusAccepted)
	if err != nil {
		return Round{}, err
	}

	var r Round
	if err := json.Unmarshal(body, &r); err != nil {
		return Round{}, err
	}

	return r, nil
}
