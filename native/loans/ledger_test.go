package loans

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"balanced/state"
	"balanced/storage"
)

type mockToken struct {
	symbol   string
	supply   *big.Int
	price    *big.Int
	burnErr  error
	burned   *big.Int
	burnFrom map[common.Address]*big.Int
}

func (m *mockToken) Symbol() (string, error)        { return m.symbol, nil }
func (m *mockToken) TotalSupply() (*big.Int, error) { return new(big.Int).Set(m.supply), nil }

func (m *mockToken) PriceInReferenceUnit() (*big.Int, error) {
	return new(big.Int).Set(m.price), nil
}

func (m *mockToken) Burn(amount *big.Int) error {
	if m.burnErr != nil {
		return m.burnErr
	}
	if m.burned == nil {
		m.burned = big.NewInt(0)
	}
	m.burned.Add(m.burned, amount)
	return nil
}

func (m *mockToken) BurnFrom(holder common.Address, amount *big.Int) error {
	if m.burnErr != nil {
		return m.burnErr
	}
	if m.burnFrom == nil {
		m.burnFrom = make(map[common.Address]*big.Int)
	}
	if m.burnFrom[holder] == nil {
		m.burnFrom[holder] = big.NewInt(0)
	}
	m.burnFrom[holder].Add(m.burnFrom[holder], amount)
	return nil
}

type mockTokens map[common.Address]*mockToken

func (m mockTokens) Token(addr common.Address) (TokenAdapter, error) {
	token, ok := m[addr]
	if !ok {
		return nil, errors.New("token not wired")
	}
	return token, nil
}

type fixedAdmin struct {
	addr common.Address
	ok   bool
}

func (a fixedAdmin) Admin() (common.Address, bool, error) { return a.addr, a.ok, nil }

func makeAddress(b byte) common.Address {
	var addr common.Address
	addr[19] = b
	return addr
}

func newTestLedger(tokens mockTokens) *Ledger {
	return NewLedger(state.NewManager(storage.NewMemDB()), tokens)
}

func TestRegisterAndAccessors(t *testing.T) {
	addr := makeAddress(0x01)
	ledger := newTestLedger(mockTokens{})

	if err := ledger.Register(common.Address{}, "BALN", addr, 1_700_000_000, true, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	active, err := ledger.IsActive("BALN")
	if err != nil || !active {
		t.Fatalf("IsActive = %v, %v", active, err)
	}
	collateral, err := ledger.IsCollateral("BALN")
	if err != nil || collateral {
		t.Fatalf("IsCollateral = %v, %v", collateral, err)
	}
	added, err := ledger.AssetAddedTime("BALN")
	if err != nil || added != 1_700_000_000 {
		t.Fatalf("AssetAddedTime = %d, %v", added, err)
	}
	badDebt, err := ledger.BadDebt("BALN")
	if err != nil || badDebt.Sign() != 0 {
		t.Fatalf("BadDebt = %s, %v", badDebt, err)
	}
	burned, err := ledger.TotalBurned("BALN")
	if err != nil || burned.Sign() != 0 {
		t.Fatalf("TotalBurned = %s, %v", burned, err)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	ledger := newTestLedger(mockTokens{})
	if err := ledger.Register(common.Address{}, "BALN", makeAddress(0x01), 1, true, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.Register(common.Address{}, "BALN", makeAddress(0x02), 2, true, false); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestSettersRejectNegativeAmounts(t *testing.T) {
	ledger := newTestLedger(mockTokens{})
	if err := ledger.Register(common.Address{}, "BALN", makeAddress(0x01), 1, true, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.SetBadDebt(common.Address{}, "BALN", big.NewInt(-1)); err != ErrNegativeAmount {
		t.Fatalf("SetBadDebt: expected ErrNegativeAmount, got %v", err)
	}
	if err := ledger.SetLiquidationPool(common.Address{}, "BALN", nil); err != ErrNegativeAmount {
		t.Fatalf("SetLiquidationPool: expected ErrNegativeAmount, got %v", err)
	}
	if err := ledger.Burn("BALN", big.NewInt(-5)); err != ErrNegativeAmount {
		t.Fatalf("Burn: expected ErrNegativeAmount, got %v", err)
	}
}

func TestMutatorsOnUnknownSymbolFail(t *testing.T) {
	ledger := newTestLedger(mockTokens{})
	if err := ledger.SetBadDebt(common.Address{}, "GHOST", big.NewInt(1)); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestBurnUpdatesCounterAfterExternalCall(t *testing.T) {
	addr := makeAddress(0x01)
	token := &mockToken{symbol: "BALN", supply: big.NewInt(0), price: big.NewInt(0)}
	ledger := newTestLedger(mockTokens{addr: token})
	if err := ledger.Register(common.Address{}, "BALN", addr, 1, true, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := ledger.Burn("BALN", big.NewInt(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	holder := makeAddress(0xaa)
	if err := ledger.BurnFrom("BALN", holder, big.NewInt(2)); err != nil {
		t.Fatalf("burn from: %v", err)
	}

	if token.burned.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("token burned = %s, want 40", token.burned)
	}
	if token.burnFrom[holder].Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("token burnFrom = %s, want 2", token.burnFrom[holder])
	}
	burned, err := ledger.TotalBurned("BALN")
	if err != nil {
		t.Fatalf("total burned: %v", err)
	}
	if burned.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("TotalBurned = %s, want 42", burned)
	}
}

func TestFailedBurnLeavesLedgerUntouched(t *testing.T) {
	addr := makeAddress(0x01)
	token := &mockToken{symbol: "BALN", supply: big.NewInt(0), price: big.NewInt(0), burnErr: errors.New("rpc down")}
	ledger := newTestLedger(mockTokens{addr: token})
	if err := ledger.Register(common.Address{}, "BALN", addr, 1, true, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := ledger.Burn("BALN", big.NewInt(40)); err == nil {
		t.Fatal("expected burn to fail")
	}
	burned, err := ledger.TotalBurned("BALN")
	if err != nil {
		t.Fatalf("total burned: %v", err)
	}
	if burned.Sign() != 0 {
		t.Fatalf("TotalBurned = %s after failed burn, want 0", burned)
	}
}

func TestAdminGatingOnMutators(t *testing.T) {
	admin := makeAddress(0x0a)
	stranger := makeAddress(0x0b)
	ledger := newTestLedger(mockTokens{})
	ledger.SetAdminView(fixedAdmin{addr: admin, ok: true})

	if err := ledger.Register(stranger, "BALN", makeAddress(0x01), 1, true, false); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Register(admin, "BALN", makeAddress(0x01), 1, true, false); err != nil {
		t.Fatalf("register as admin: %v", err)
	}
	if err := ledger.SetActive(stranger, "BALN", false); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.SetActive(admin, "BALN", false); err != nil {
		t.Fatalf("set active as admin: %v", err)
	}
}
