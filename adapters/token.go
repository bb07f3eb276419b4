package adapters

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"balanced/native/loans"
)

// Token binds the gateway to a single token contract, satisfying the loans
// ledger's token adapter.
type Token struct {
	gateway *Gateway
	addr    common.Address
}

// Token resolves the adapter for a token contract address.
func (g *Gateway) Token(addr common.Address) (loans.TokenAdapter, error) {
	return &Token{gateway: g, addr: addr}, nil
}

func (t *Token) path(suffix string) string {
	return "/token/" + t.addr.Hex() + suffix
}

// Symbol returns the token's ticker symbol.
func (t *Token) Symbol() (string, error) {
	return t.gateway.Symbol(t.addr)
}

// TotalSupply returns the token's live total supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	var payload struct {
		Supply string `json:"supply"`
	}
	if err := t.gateway.get(t.path("/supply"), &payload); err != nil {
		return nil, err
	}
	return parseAmount("supply", payload.Supply)
}

// PriceInReferenceUnit returns the token's oracle price by symbol.
func (t *Token) PriceInReferenceUnit() (*big.Int, error) {
	symbol, err := t.Symbol()
	if err != nil {
		return nil, err
	}
	return t.gateway.PriceInReferenceUnit(strings.TrimSpace(symbol))
}

// Burn destroys protocol-held tokens on the contract.
func (t *Token) Burn(amount *big.Int) error {
	return t.gateway.post(t.path("/burn"), map[string]string{
		"amount": amount.String(),
	}, nil)
}

// BurnFrom destroys tokens held by a specific account.
func (t *Token) BurnFrom(holder common.Address, amount *big.Int) error {
	return t.gateway.post(t.path("/burnFrom"), map[string]string{
		"holder": holder.Hex(),
		"amount": amount.String(),
	}, nil)
}
