package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/httpclient"
)

var ErrRelayNotConfigured = errors.New("relay endpoint not configured")

// Relay submits permit call data to a sponsored relay and returns its task id.
// Hedera brands go through a dedicated relay endpoint.
type Relay struct {
	gelato *httpclient.Client
	hedera *httpclient.Client
}

// NewRelay creates a relay client. hedera may be nil when no Hedera brand is served.
func NewRelay(gelato, hedera *httpclient.Client) *Relay {
	return &Relay{gelato: gelato, hedera: hedera}
}

type sponsoredCallRequest struct {
	ChainID       int64  `json:"chainId"`
	Target        string `json:"target"`
	Data          string `json:"data"`
	SponsorAPIKey string `json:"sponsorApiKey"`
}

type hederaRelayRequest struct {
	ChainID int64  `json:"chainId"`
	Target  string `json:"target"`
	Data    string `json:"data"`
	RPCURL  string `json:"rpcUrl"`
	BrandID string `json:"brandId"`
	APIKey  string `json:"apiKey,omitempty"`
}

type relayResponse struct {
	TaskID string `json:"taskId"`
}

func (r *Relay) Relay(ctx context.Context, req entities.RelayRequest) (string, error) {
	var out relayResponse
	if req.IsHedera {
		if r.hedera == nil {
			return "", fmt.Errorf("hedera relay: %w", ErrRelayNotConfigured)
		}
		body := hederaRelayRequest{
			ChainID: req.ChainID,
			Target:  req.Target,
			Data:    req.Data,
			RPCURL:  req.RPCURL,
			BrandID: req.BrandID,
			APIKey:  req.APIKey,
		}
		if err := r.hedera.Post(ctx, "relay", body, "", &out); err != nil {
			return "", fmt.Errorf("hedera relay: %w", err)
		}
	} else {
		if r.gelato == nil {
			return "", fmt.Errorf("gelato relay: %w", ErrRelayNotConfigured)
		}
		body := sponsoredCallRequest{
			ChainID:       req.ChainID,
			Target:        req.Target,
			Data:          req.Data,
			SponsorAPIKey: req.APIKey,
		}
		if err := r.gelato.Post(ctx, "relays/v2/sponsored-call", body, "", &out); err != nil {
			return "", fmt.Errorf("gelato relay: %w", err)
		}
	}
	if out.TaskID == "" {
		return "", errors.New("relay returned no task id")
	}
	return out.TaskID, nil
}
