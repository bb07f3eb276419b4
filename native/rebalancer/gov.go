package rebalancer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) requireGovernance(caller common.Address) error {
	if e == nil || e.params == nil {
		return errNotConfigured
	}
	governance, ok, err := e.params.Governance()
	if err != nil {
		return err
	}
	if !ok || caller != governance {
		return ErrUnauthorized
	}
	return nil
}

// SetPriceDiffThreshold updates the deviation band. Only governance may call
// it; the check runs before any state write.
func (e *Engine) SetPriceDiffThreshold(caller common.Address, value *big.Int) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	return e.params.SetPriceThreshold(value)
}

// PriceChangeThreshold returns the configured deviation band.
func (e *Engine) PriceChangeThreshold() (*big.Int, error) {
	if e == nil || e.params == nil {
		return nil, errNotConfigured
	}
	threshold, ok, err := e.params.PriceThreshold()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrThresholdNotSet
	}
	return threshold, nil
}

// SetAdmin rotates the protocol admin. Only governance may call it.
func (e *Engine) SetAdmin(caller common.Address, admin common.Address) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	return e.params.SetAdmin(admin)
}

// Admin returns the configured protocol admin, when set.
func (e *Engine) Admin() (common.Address, bool, error) {
	if e == nil || e.params == nil {
		return common.Address{}, false, errNotConfigured
	}
	return e.params.Admin()
}
