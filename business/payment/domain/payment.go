// Package domain contains the core types of the payment ledger.
package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/internal/apperror"
)

// Native is the currency sentinel for the chain-native coin.
var Native = common.Address{}

// IsNative reports whether currency denotes the native coin.
func IsNative(currency common.Address) bool {
	return currency == Native
}

// Receipt describes a completed credit, handed to the recipient's hook.
type Receipt struct {
	Currency common.Address
	From     common.Address
	To       common.Address
	Amount   *big.Int
}

// RecipientHook runs when an account receives funds. It executes inside the
// transfer's transaction: returning an error rejects the payment, and ledger
// calls made with ctx join the same transaction.
type RecipientHook func(ctx context.Context, r Receipt) error

// ValidateAmount rejects nil and negative amounts.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "amount must be a non-negative integer")
	}
	return nil
}

// ErrInsufficient is returned when a debit exceeds what is available.
func ErrInsufficient(what string, account common.Address, have, want *big.Int) error {
	return apperror.New(apperror.CodeTransferFailed,
		apperror.WithContext("insufficient "+what+" for "+account.Hex()+": have "+have.String()+", want "+want.String()))
}
