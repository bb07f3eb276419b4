package adapters

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGateway(server.Client(), server.URL)
}

func TestPriceInReferenceUnit(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oracle/price/sICX" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"price": "1050000000000000000"})
	})

	price, err := gateway.PriceInReferenceUnit("sICX")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.String() != "1050000000000000000" {
		t.Fatalf("price = %s", price)
	}
}

func TestPoolLookupAndStats(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dex/pool":
			_ = json.NewEncoder(w).Encode(map[string]uint64{"id": 2})
		case "/dex/pool/2/stats":
			_ = json.NewEncoder(w).Encode(map[string]string{"base": "100", "quote": "200"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := gateway.PoolID(common.HexToAddress("0x01"), common.HexToAddress("0x02"))
	if err != nil {
		t.Fatalf("pool id: %v", err)
	}
	stats, err := gateway.PoolStats(id)
	if err != nil {
		t.Fatalf("pool stats: %v", err)
	}
	if stats.Base.Cmp(big.NewInt(100)) != 0 || stats.Quote.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestErrorStatusAborts(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oracle down", http.StatusBadGateway)
	})

	if _, err := gateway.PriceInReferenceUnit("sICX"); err == nil {
		t.Fatal("expected non-200 response to fail")
	}
}

func TestRaisePricePostsAmount(t *testing.T) {
	var got map[string]string
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/loans/raisePrice" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})

	if err := gateway.RaisePrice("sICX", big.NewInt(42)); err != nil {
		t.Fatalf("raise price: %v", err)
	}
	if got["symbol"] != "sICX" || got["amount"] != "42" {
		t.Fatalf("payload = %v", got)
	}
}

func TestTokenAdapter(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000007")
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/" + addr.Hex() + "/symbol":
			_ = json.NewEncoder(w).Encode(map[string]string{"symbol": "bnUSD"})
		case "/token/" + addr.Hex() + "/supply":
			_ = json.NewEncoder(w).Encode(map[string]string{"supply": "250"})
		case "/oracle/price/bnUSD":
			_ = json.NewEncoder(w).Encode(map[string]string{"price": "1000000000000000000"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	token, err := gateway.Token(addr)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	symbol, err := token.Symbol()
	if err != nil || symbol != "bnUSD" {
		t.Fatalf("symbol = %q, %v", symbol, err)
	}
	supply, err := token.TotalSupply()
	if err != nil || supply.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("supply = %s, %v", supply, err)
	}
	price, err := token.PriceInReferenceUnit()
	if err != nil || price.String() != "1000000000000000000" {
		t.Fatalf("price = %s, %v", price, err)
	}
}
