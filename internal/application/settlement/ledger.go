package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceivablesLedger keeps customer credit balances. Every method works on
// the repository it is given, which must be bound to the caller's transaction.
type ReceivablesLedger struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewReceivablesLedger creates a ledger
func NewReceivablesLedger(logger *zap.Logger) *ReceivablesLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceivablesLedger{logger: logger, now: time.Now}
}

// ChargeCredit books a credit sale on the customer's Pending account, opening
// one if there is none. The account row stays locked until the transaction ends.
func (l *ReceivablesLedger) ChargeCredit(
	ctx context.Context,
	repo finance.ReceivableAccountRepository,
	tenantID, customerID uuid.UUID,
	amount, creditLimit decimal.Decimal,
) (*finance.ReceivableAccount, error) {
	account, err := repo.FindPendingByCustomerForUpdate(ctx, tenantID, customerID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		account, err = finance.NewReceivableAccount(tenantID, customerID, amount, creditLimit)
		if err != nil {
			return nil, err
		}
		l.logger.Info("Opening receivable account",
			zap.String("customer_id", customerID.String()),
			zap.String("amount", account.AmountCharged.StringFixed(2)),
		)
	case err != nil:
		return nil, fmt.Errorf("failed to lock receivable account: %w", err)
	default:
		if err := account.Charge(amount, creditLimit, l.now()); err != nil {
			return nil, err
		}
	}

	if err := repo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save receivable account: %w", err)
	}
	return account, nil
}

// ApplyPayment pays down an account
func (l *ReceivablesLedger) ApplyPayment(
	ctx context.Context,
	repo finance.ReceivableAccountRepository,
	tenantID, accountID uuid.UUID,
	amount decimal.Decimal,
	reference string,
) (*finance.ReceivableAccount, error) {
	return l.applyPayment(ctx, repo, tenantID, accountID, amount, func(account *finance.ReceivableAccount) error {
		return account.ApplyPayment(amount, reference, l.now())
	})
}

// ApplyBatchPayment pays down an account as one item of batch batchID
func (l *ReceivablesLedger) ApplyBatchPayment(
	ctx context.Context,
	repo finance.ReceivableAccountRepository,
	tenantID, accountID, batchID uuid.UUID,
	amount decimal.Decimal,
	reference string,
) (*finance.ReceivableAccount, error) {
	return l.applyPayment(ctx, repo, tenantID, accountID, amount, func(account *finance.ReceivableAccount) error {
		return account.ApplyBatchPayment(batchID, amount, reference, l.now())
	})
}

func (l *ReceivablesLedger) applyPayment(
	ctx context.Context,
	repo finance.ReceivableAccountRepository,
	tenantID, accountID uuid.UUID,
	amount decimal.Decimal,
	apply func(*finance.ReceivableAccount) error,
) (*finance.ReceivableAccount, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	account, err := repo.FindByIDForUpdate(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if err := apply(account); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save receivable account: %w", err)
	}
	return account, nil
}

// ReverseCharge takes a cancelled credit sale back off an account. Accounts
// that are no longer Pending are left untouched.
func (l *ReceivablesLedger) ReverseCharge(
	ctx context.Context,
	repo finance.ReceivableAccountRepository,
	tenantID, accountID uuid.UUID,
	amount decimal.Decimal,
) (*finance.ReceivableAccount, error) {
	account, err := repo.FindByIDForUpdate(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	changed, err := account.ReverseCharge(amount, l.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		l.logger.Info("Receivable no longer pending, reversal skipped",
			zap.String("account_id", accountID.String()),
			zap.String("status", account.Status.String()),
		)
		return account, nil
	}
	if err := repo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save receivable account: %w", err)
	}
	return account, nil
}
