package app

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/nft-auction/business/payment/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/logger"
)

// PaymentService is the fungible funds ledger for the native coin and
// token currencies.
type PaymentService struct {
	repo Repository
	tx   Transactor
	log  logger.LoggerInterface

	mu    sync.RWMutex
	hooks map[common.Address]domain.RecipientHook
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(repo Repository, tx Transactor, log logger.LoggerInterface) *PaymentService {
	return &PaymentService{
		repo:  repo,
		tx:    tx,
		log:   log,
		hooks: make(map[common.Address]domain.RecipientHook),
	}
}

// RegisterRecipient installs hook for account, replacing any previous one.
func (s *PaymentService) RegisterRecipient(account common.Address, hook domain.RecipientHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[account] = hook
}

// UnregisterRecipient removes the hook of account.
func (s *PaymentService) UnregisterRecipient(account common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hooks, account)
}

// Mint credits amount to to out of thin air. Used for funding accounts.
func (s *PaymentService) Mint(ctx context.Context, currency, to common.Address, amount *big.Int) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		return s.credit(ctx, currency, to, amount)
	})
}

// BalanceOf returns the balance of account.
func (s *PaymentService) BalanceOf(ctx context.Context, currency, account common.Address) (*big.Int, error) {
	return s.repo.Balance(ctx, currency, account)
}

// Allowance returns what spender may still pull from owner.
func (s *PaymentService) Allowance(ctx context.Context, currency, owner, spender common.Address) (*big.Int, error) {
	return s.repo.Allowance(ctx, currency, owner, spender)
}

// Approve sets the allowance of spender over owner's token balance.
func (s *PaymentService) Approve(ctx context.Context, currency, owner, spender common.Address, amount *big.Int) error {
	if domain.IsNative(currency) {
		return apperror.Validation(apperror.CodeInvalidInput, "native currency has no allowances")
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		return s.repo.SetAllowance(ctx, currency, owner, spender, amount)
	})
}

// Transfer moves amount from from to to, then runs to's recipient hook.
func (s *PaymentService) Transfer(ctx context.Context, currency, from, to common.Address, amount *big.Int) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		return s.move(ctx, currency, from, to, amount)
	})
}

// TransferFrom moves amount of a token from from to to on behalf of
// spender, consuming allowance.
func (s *PaymentService) TransferFrom(ctx context.Context, spender, currency, from, to common.Address, amount *big.Int) error {
	if domain.IsNative(currency) {
		return apperror.New(apperror.CodeTransferFailed,
			apperror.WithContext("native currency cannot be pulled"))
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		if spender != from {
			allowance, err := s.repo.Allowance(ctx, currency, from, spender)
			if err != nil {
				return err
			}
			if allowance.Cmp(amount) < 0 {
				return domain.ErrInsufficient("allowance", spender, allowance, amount)
			}
			left := new(big.Int).Sub(allowance, amount)
			if err := s.repo.SetAllowance(ctx, currency, from, spender, left); err != nil {
				return err
			}
		}
		return s.move(ctx, currency, from, to, amount)
	})
}

func (s *PaymentService) move(ctx context.Context, currency, from, to common.Address, amount *big.Int) error {
	balance, err := s.repo.Balance(ctx, currency, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return domain.ErrInsufficient("balance", from, balance, amount)
	}

	if err := s.repo.SetBalance(ctx, currency, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := s.credit(ctx, currency, to, amount); err != nil {
		return err
	}

	return s.notify(ctx, domain.Receipt{Currency: currency, From: from, To: to, Amount: new(big.Int).Set(amount)})
}

func (s *PaymentService) credit(ctx context.Context, currency, to common.Address, amount *big.Int) error {
	balance, err := s.repo.Balance(ctx, currency, to)
	if err != nil {
		return err
	}
	return s.repo.SetBalance(ctx, currency, to, new(big.Int).Add(balance, amount))
}

func (s *PaymentService) notify(ctx context.Context, r domain.Receipt) error {
	s.mu.RLock()
	hook, ok := s.hooks[r.To]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := hook(ctx, r); err != nil {
		s.log.Warn(ctx, "recipient rejected payment", "to", r.To.Hex(), "amount", r.Amount.String(), "error", err)
		return apperror.New(apperror.CodeTransferFailed,
			apperror.WithCause(err),
			apperror.WithContext("recipient "+r.To.Hex()+" rejected payment"))
	}
	return nil
}
