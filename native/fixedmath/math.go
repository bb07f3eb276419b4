package fixedmath

import (
	"errors"
	"math/big"
)

var (
	ErrDivisionByZero = errors.New("fixedmath: division by zero")
	ErrNegativeSqrt   = errors.New("fixedmath: square root of negative value")
)

// Exa is the fixed-point scale unit. All scaled amounts represent a real
// value multiplied by 10^18.
var Exa = mustBigInt("1000000000000000000")

var two = big.NewInt(2)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// MulDiv returns floor(a*b/c). The product is carried at arbitrary precision
// so the multiply-before-divide chain never overflows. Division truncates
// toward zero.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if a == nil || b == nil || c == nil {
		return nil, ErrDivisionByZero
	}
	if c.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c), nil
}

// Isqrt returns floor(sqrt(x)) for non-negative x.
func Isqrt(x *big.Int) (*big.Int, error) {
	if x == nil || x.Sign() < 0 {
		return nil, ErrNegativeSqrt
	}
	return new(big.Int).Sqrt(x), nil
}

// Ipow returns base**exp using exponentiation by squaring. The exponent is an
// ordinary integer, not a scaled amount.
func Ipow(base *big.Int, exp uint) *big.Int {
	result := big.NewInt(1)
	if base == nil {
		return result
	}
	factor := new(big.Int).Set(base)
	for exp > 0 {
		if exp&1 == 1 {
			result.Mul(result, factor)
		}
		factor.Mul(factor, factor)
		exp >>= 1
	}
	return result
}

// Half returns x/2 truncated toward zero.
func Half(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(x, two)
}
