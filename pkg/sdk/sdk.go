// Package sdk is the Go client for the coordinator HTTP API.
package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const (
	CTJSON string = "application/json"
	CTCBOR string = "application/cbor"
)

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// CreateRound opens a new aggregation round.
	//
	// example:
	//  round := sdk.Round{
	//    Quorum: 5,
	//  }
	//  round, _ := sdk.CreateRound(round)
	//  fmt.Println(round)
	CreateRound(round Round) (Round, error)

	// GetRound gets a round by id.
	//
	// example:
	//  round, _ := sdk.GetRound("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(round)
	GetRound(id string) (Round, error)

	// ListRounds lists rounds.
	//
	// example:
	//  roundPage, _ := sdk.ListRounds(0, 10)
	//  fmt.Println(roundPage)
	ListRounds(offset uint64, limit uint64) (RoundPage, error)

	// GetRoundStatus gets the polling view of a round.
	//
	// example:
	//  status, _ := sdk.GetRoundStatus("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(status)
	GetRoundStatus(id string) (RoundStatus, error)

	// SubmitUpdate submits one participant's update to a round.
	//
	// example:
	//  update := sdk.Update{
	//    RoundID:  "b1d10738-c5d7-4ff1-8f4d-b9328ce6f040",
	//    ClientID: "client-1",
	//    Vector:   []float64{0.1, -0.2},
	//  }
	//  round, _ := sdk.SubmitUpdate(update)
	//  fmt.Println(round)
	SubmitUpdate(update Update) (Round, error)

	// SubmitUpdateCBOR submits one participant's update encoded as CBOR.
	//
	// example:
	//  round, _ := sdk.SubmitUpdateCBOR(update)
	//  fmt.Println(round)
	SubmitUpdateCBOR(update Update) (Round, error)
}

type bladesSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &bladesSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *bladesSDK) processRequest(method, reqURL, contentType string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", contentType)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
