// Package adapters implements the external collaborator interfaces over the
// chain gateway's JSON API: the price oracle, the exchange pools, the token
// contracts, and the lending price-adjustment calls.
package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"balanced/native/rebalancer"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway talks to the chain gateway. One client serves all adapter roles;
// every call is synchronous and any non-200 response aborts the enclosing
// operation.
type Gateway struct {
	client  HTTPDoer
	baseURL string
}

// NewGateway constructs a gateway client. When client is nil a default
// http.Client with a 10s timeout is used.
func NewGateway(client HTTPDoer, baseURL string) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{client: client, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (g *Gateway) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *Gateway) post(path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out interface{}) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func parseAmount(field, text string) (*big.Int, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("gateway: empty %s", field)
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("gateway: invalid %s %q", field, text)
	}
	return v, nil
}

// PriceInReferenceUnit returns the oracle price for a symbol, scaled by 10^18.
func (g *Gateway) PriceInReferenceUnit(symbol string) (*big.Int, error) {
	var payload struct {
		Price string `json:"price"`
	}
	if err := g.get("/oracle/price/"+strings.TrimSpace(symbol), &payload); err != nil {
		return nil, err
	}
	return parseAmount("price", payload.Price)
}

// PoolID resolves the pool holding the base/quote pair.
func (g *Gateway) PoolID(base, quote common.Address) (uint64, error) {
	var payload struct {
		ID uint64 `json:"id"`
	}
	path := fmt.Sprintf("/dex/pool?base=%s&quote=%s", base.Hex(), quote.Hex())
	if err := g.get(path, &payload); err != nil {
		return 0, err
	}
	if payload.ID == 0 {
		return 0, fmt.Errorf("gateway: no pool for %s/%s", base.Hex(), quote.Hex())
	}
	return payload.ID, nil
}

// PoolStats returns the base and quote reserves of a pool.
func (g *Gateway) PoolStats(id uint64) (rebalancer.PoolStats, error) {
	var payload struct {
		Base  string `json:"base"`
		Quote string `json:"quote"`
	}
	if err := g.get(fmt.Sprintf("/dex/pool/%d/stats", id), &payload); err != nil {
		return rebalancer.PoolStats{}, err
	}
	base, err := parseAmount("base reserve", payload.Base)
	if err != nil {
		return rebalancer.PoolStats{}, err
	}
	quote, err := parseAmount("quote reserve", payload.Quote)
	if err != nil {
		return rebalancer.PoolStats{}, err
	}
	return rebalancer.PoolStats{Base: base, Quote: quote}, nil
}

// Symbol resolves the ticker symbol of a token contract.
func (g *Gateway) Symbol(addr common.Address) (string, error) {
	var payload struct {
		Symbol string `json:"symbol"`
	}
	if err := g.get("/token/"+addr.Hex()+"/symbol", &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Symbol) == "" {
		return "", fmt.Errorf("gateway: empty symbol for %s", addr.Hex())
	}
	return payload.Symbol, nil
}

// RaisePrice asks the lending contract to buy collateral into the pool.
func (g *Gateway) RaisePrice(symbol string, amount *big.Int) error {
	return g.post("/loans/raisePrice", map[string]string{
		"symbol": symbol,
		"amount": amount.String(),
	}, nil)
}

// LowerPrice asks the lending contract to sell collateral out of the pool.
func (g *Gateway) LowerPrice(symbol string, amount *big.Int) error {
	return g.post("/loans/lowerPrice", map[string]string{
		"symbol": symbol,
		"amount": amount.String(),
	}, nil)
}
