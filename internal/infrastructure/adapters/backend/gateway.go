// Package backend holds the per-domain clients of the reward protocol REST API.
// Every client shares one httpclient.Client; none of them keep session state.
package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/httpclient"
	"go.uber.org/zap"
)

// APIError is a non-2xx backend response
type APIError = httpclient.APIError

// Gateway bundles the domain clients built on one HTTP helper
type Gateway struct {
	Auth    *AuthClient
	Rewards *RewardClient
	Runtime *RuntimeClient
	Orders  *OrderClient
	Catalog *CatalogClient
}

// NewGateway creates all backend clients for cfg
func NewGateway(cfg httpclient.Config, logger *zap.Logger) *Gateway {
	if cfg.Name == "" {
		cfg.Name = "backend"
	}
	return NewGatewayFromClient(httpclient.New(cfg, logger))
}

// NewGatewayFromClient wires the domain clients onto an existing helper
func NewGatewayFromClient(http *httpclient.Client) *Gateway {
	return &Gateway{
		Auth:    &AuthClient{http: http},
		Rewards: &RewardClient{http: http},
		Runtime: &RuntimeClient{http: http},
		Orders:  &OrderClient{http: http},
		Catalog: &CatalogClient{http: http},
	}
}

// AuthClient calls auth/*
type AuthClient struct {
	http *httpclient.Client
}

// Login creates or resumes the protocol account bound to email and wallet.
// It may create an account, so callers must not retry it.
func (c *AuthClient) Login(ctx context.Context, req entities.LoginRequest) (*entities.LoginResult, error) {
	var out entities.LoginResult
	if err := c.http.Post(ctx, "auth/login", req, "", &out); err != nil {
		return nil, fmt.Errorf("protocol login: %w", err)
	}
	return &out, nil
}

// RewardClient calls reward/*
type RewardClient struct {
	http *httpclient.Client
}

func (c *RewardClient) Balances(ctx context.Context, token, walletAddress string) ([]entities.RewardBalance, error) {
	var out []entities.RewardBalance
	query := url.Values{"walletAddress": []string{walletAddress}}
	if err := c.http.Get(ctx, "reward/balances", query, token, &out); err != nil {
		return nil, fmt.Errorf("fetch reward balances: %w", err)
	}
	return out, nil
}

func (c *RewardClient) SwapAmount(ctx context.Context, token string, req entities.SwapAmountRequest) (*entities.SwapAmountResult, error) {
	var out entities.SwapAmountResult
	if err := c.http.Post(ctx, "reward/swap-amount", req, token, &out); err != nil {
		return nil, fmt.Errorf("calculate swap amount: %w", err)
	}
	return &out, nil
}

// RuntimeClient calls runtime/*
type RuntimeClient struct {
	http *httpclient.Client
}

type pushTransactionRequest struct {
	Params entities.SignedTransaction `json:"params"`
}

// PushTransaction submits a signed transaction and returns the runtime's spend data
func (c *RuntimeClient) PushTransaction(ctx context.Context, token string, tx entities.SignedTransaction) (entities.PushTransactionResult, error) {
	var out entities.PushTransactionResult
	if err := c.http.Post(ctx, "runtime/push-transaction", pushTransactionRequest{Params: tx}, token, &out); err != nil {
		return nil, fmt.Errorf("push transaction: %w", err)
	}
	if out == nil {
		out = entities.SpendData{}
	}
	return out, nil
}

// RefundTask asks the runtime to reverse a pushed spend
func (c *RuntimeClient) RefundTask(ctx context.Context, token string, spend entities.SpendData) error {
	if err := c.http.Post(ctx, "runtime/refund-task", entities.RefundRequest{SpendData: spend}, token, nil); err != nil {
		return fmt.Errorf("refund task: %w", err)
	}
	return nil
}

// OrderClient calls orders/* and order/*
type OrderClient struct {
	http *httpclient.Client
}

func (c *OrderClient) ProcessOrder(ctx context.Context, token string, req entities.ProcessOrderRequest) (*entities.ProcessOrderResult, error) {
	var out entities.ProcessOrderResult
	if err := c.http.Post(ctx, "orders/process-order", req, token, &out); err != nil {
		return nil, fmt.Errorf("process order: %w", err)
	}
	return &out, nil
}

func (c *OrderClient) CheckoutURL(ctx context.Context, token string, req entities.CheckoutURLRequest) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.http.Post(ctx, "order/checkout-url", req, token, &out); err != nil {
		return "", fmt.Errorf("checkout url: %w", err)
	}
	return out.URL, nil
}

// CatalogClient serves the public offer, brand and category lookups
type CatalogClient struct {
	http *httpclient.Client
}

func (c *CatalogClient) OfferDetail(ctx context.Context, code string) (*entities.OfferDetail, error) {
	var out entities.OfferDetail
	if err := c.http.Get(ctx, "offers/"+url.PathEscape(code), nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch offer %s: %w", code, err)
	}
	return &out, nil
}

func (c *CatalogClient) Brands(ctx context.Context) ([]entities.Brand, error) {
	var out []entities.Brand
	if err := c.http.Get(ctx, "brands", nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch brands: %w", err)
	}
	return out, nil
}

func (c *CatalogClient) Categories(ctx context.Context) ([]entities.Category, error) {
	var out []entities.Category
	if err := c.http.Get(ctx, "categories", nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return out, nil
}

func (c *CatalogClient) BrandsWithOffers(ctx context.Context, categoryID string) ([]entities.BrandWithOffers, error) {
	var out []entities.BrandWithOffers
	if err := c.http.Get(ctx, "categories/"+url.PathEscape(categoryID)+"/brands", nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch brands for category %s: %w", categoryID, err)
	}
	return out, nil
}

func (c *CatalogClient) BrandOffers(ctx context.Context, brandID string) ([]entities.OfferSummary, error) {
	var out []entities.OfferSummary
	if err := c.http.Get(ctx, "brands/"+url.PathEscape(brandID)+"/offers", nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch offers for brand %s: %w", brandID, err)
	}
	return out, nil
}
