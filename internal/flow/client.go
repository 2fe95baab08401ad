package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"ChannelSentinel/internal/model"
)

// Source provides the options-flow inputs of a scan.
type Source interface {
	FetchUnusualTrades(ctx context.Context, symbol string) ([]model.UnusualTrade, error)
	FetchGEX(ctx context.Context, symbol string) (model.GEXProfile, error)
	Name() string
}

// UnusualWhalesClient implements Source against the Unusual Whales REST API.
type UnusualWhalesClient struct {
	client *resty.Client
	preset Preset
}

// NewUnusualWhalesClient creates a client. The preset's params are sent with every
// unusual-trade query; an unknown preset name sends none.
func NewUnusualWhalesClient(baseURL, apiKey, presetName, proxyURL string) *UnusualWhalesClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err == nil {
			client.SetProxy(proxyURL)
		}
	}

	preset, _ := LookupPreset(presetName)
	return &UnusualWhalesClient{client: client, preset: preset}
}

func (c *UnusualWhalesClient) Name() string { return "unusual_whales" }

// Preset returns the preset applied to unusual-trade queries.
func (c *UnusualWhalesClient) Preset() Preset { return c.preset }

// FetchUnusualTrades returns the flagged trades for symbol in API order.
func (c *UnusualWhalesClient) FetchUnusualTrades(ctx context.Context, symbol string) ([]model.UnusualTrade, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(c.preset.Params).
		SetPathParam("ticker", symbol).
		Get("/stocks/{ticker}/unusual")
	if err != nil {
		return nil, fmt.Errorf("fetch unusual trades for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch unusual trades for %s: status %d, body: %s", symbol, resp.StatusCode(), resp.String())
	}

	var payload struct {
		Data []model.UnusualTrade `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode unusual trades: %w", err)
	}
	for i := range payload.Data {
		if payload.Data[i].Ticker == "" {
			payload.Data[i].Ticker = symbol
		}
	}
	return payload.Data, nil
}

// FetchGEX returns the simplified gamma exposure profile for symbol.
func (c *UnusualWhalesClient) FetchGEX(ctx context.Context, symbol string) (model.GEXProfile, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("ticker", symbol).
		Get("/stocks/{ticker}/gex")
	if err != nil {
		return model.GEXProfile{}, fmt.Errorf("fetch gex for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return model.GEXProfile{}, fmt.Errorf("fetch gex for %s: status %d, body: %s", symbol, resp.StatusCode(), resp.String())
	}

	var gex model.GEXProfile
	if err := json.Unmarshal(resp.Body(), &gex); err != nil {
		return model.GEXProfile{}, fmt.Errorf("decode gex: %w", err)
	}
	return gex, nil
}

// StaticSource serves fixed flow data. It backs the mock data provider and tests.
type StaticSource struct {
	Trades map[string][]model.UnusualTrade
	GEX    map[string]model.GEXProfile
	Err    error
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchUnusualTrades(_ context.Context, symbol string) ([]model.UnusualTrade, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Trades[symbol], nil
}

func (s *StaticSource) FetchGEX(_ context.Context, symbol string) (model.GEXProfile, error) {
	if s.Err != nil {
		return model.GEXProfile{}, s.Err
	}
	return s.GEX[symbol], nil
}
