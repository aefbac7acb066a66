package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Client talks to the venue's public REST API. It implements
// domain.CatalogSource.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ domain.CatalogSource = (*Client)(nil)

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With(slog.String("component", "deribit_rest")),
	}
}

// FetchInstruments returns all live option instruments for the currency.
// Mark IV and open interest come from the book summary endpoint and are
// merged by instrument name; instruments absent from the summary keep a
// zero mark IV and are excluded from exposure math downstream.
func (c *Client) FetchInstruments(ctx context.Context, currency string) ([]domain.Instrument, error) {
	var raw []instrumentResult
	params := url.Values{
		"currency": {currency},
		"kind":     {"option"},
		"expired":  {"false"},
	}
	if err := c.get(ctx, "get_instruments", params, &raw); err != nil {
		return nil, fmt.Errorf("deribit: get_instruments: %w", err)
	}

	var summaries []bookSummaryResult
	sumParams := url.Values{"currency": {currency}, "kind": {"option"}}
	if err := c.get(ctx, "get_book_summary_by_currency", sumParams, &summaries); err != nil {
		return nil, fmt.Errorf("deribit: get_book_summary_by_currency: %w", err)
	}
	byName := make(map[string]bookSummaryResult, len(summaries))
	for _, s := range summaries {
		byName[s.InstrumentName] = s
	}

	out := make([]domain.Instrument, 0, len(raw))
	for _, r := range raw {
		if r.Kind != "option" {
			continue
		}
		var optType domain.OptionType
		switch r.OptionType {
		case "call":
			optType = domain.Call
		case "put":
			optType = domain.Put
		default:
			continue
		}
		multiplier := r.ContractSize
		if multiplier <= 0 {
			multiplier = 1
		}
		inst := domain.Instrument{
			Name:       r.InstrumentName,
			Underlying: r.BaseCurrency,
			Strike:     r.Strike,
			Expiry:     time.UnixMilli(r.ExpirationTimestamp).UTC(),
			Type:       optType,
			Multiplier: multiplier,
		}
		if s, ok := byName[r.InstrumentName]; ok {
			inst.MarkIV = normalizeIV(s.MarkIV)
			inst.OpenInterest = s.OpenInterest
		}
		out = append(out, inst)
	}
	c.logger.Debug("fetched instruments",
		slog.String("currency", currency),
		slog.Int("count", len(out)))
	return out, nil
}

// FetchIndexPrice returns the spot index price for the currency, e.g. the
// btc_usd index for BTC.
func (c *Client) FetchIndexPrice(ctx context.Context, currency string) (float64, error) {
	var res indexPriceResult
	params := url.Values{"index_name": {strings.ToLower(currency) + "_usd"}}
	if err := c.get(ctx, "get_index_price", params, &res); err != nil {
		return 0, fmt.Errorf("deribit: get_index_price: %w", err)
	}
	if res.IndexPrice <= 0 {
		return 0, fmt.Errorf("deribit: get_index_price: non-positive price %v", res.IndexPrice)
	}
	return res.IndexPrice, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	var envelope restEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("venue error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return json.Unmarshal(envelope.Result, out)
}

// normalizeIV converts the venue's percent-quoted volatility to a decimal.
// Values already below 5 are assumed decimal and passed through.
func normalizeIV(iv float64) float64 {
	if iv > 5 {
		return iv / 100
	}
	return iv
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
