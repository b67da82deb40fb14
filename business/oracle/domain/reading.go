// Package domain contains the price reading types of the oracle context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// USDDecimals is the fixed-point precision of normalised USD prices.
const USDDecimals = 18

// Reading is one answer of a price feed: Value scaled by 10^Decimals.
type Reading struct {
	Value     *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// Normalize rescales value from decimals to USDDecimals. Precision beyond
// 18 decimals is truncated.
func Normalize(value *big.Int, decimals uint8) *big.Int {
	out := new(big.Int).Set(value)
	switch {
	case decimals < USDDecimals:
		out.Mul(out, pow10(USDDecimals-int(decimals)))
	case decimals > USDDecimals:
		out.Quo(out, pow10(int(decimals)-USDDecimals))
	}
	return out
}

// USD returns the reading in 18-decimal fixed point.
func (r Reading) USD() *big.Int {
	return Normalize(r.Value, r.Decimals)
}

// Validate rejects non-positive answers and, when maxAge is positive,
// readings older than maxAge at now.
func (r Reading) Validate(feed common.Address, now time.Time, maxAge time.Duration) error {
	if r.Value == nil || r.Value.Sign() <= 0 {
		return apperror.Validation(apperror.CodeInvalidPriceFeed, "non-positive answer from "+feed.Hex())
	}
	if maxAge > 0 && now.Sub(r.UpdatedAt) > maxAge {
		return apperror.New(apperror.CodeStalePrice,
			apperror.WithContext(feed.Hex()+" last updated "+r.UpdatedAt.UTC().Format(time.RFC3339)))
	}
	return nil
}

// Value converts amount, expressed in a currency with currencyDecimals, to
// 18-decimal USD at usdPrice.
func Value(amount *big.Int, currencyDecimals uint8, usdPrice *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, usdPrice)
	return out.Quo(out, pow10(int(currencyDecimals)))
}

// ErrUnknownFeed is returned for feed addresses nobody registered.
func ErrUnknownFeed(feed common.Address) error {
	return apperror.Validation(apperror.CodeInvalidPriceFeed, "unknown feed "+feed.Hex())
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
