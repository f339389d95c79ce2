package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PayoutStatus represents the status of a money movement out to a creator.
// Transitions are pending -> completed | failed; a payout is never left
// pending indefinitely without a terminal follow-up (the retry sweep owns
// stale pending rows).
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

func (s PayoutStatus) String() string {
	return string(s)
}

func (s PayoutStatus) Validate() error {
	allowed := []PayoutStatus{
		PayoutStatusPending,
		PayoutStatusCompleted,
		PayoutStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid payout status: %s", s)
	}
	return nil
}

// PayoutMethod represents the money-movement channel a creator configured
type PayoutMethod string

const (
	PayoutMethodMTNMoMo      PayoutMethod = "mtn_momo"
	PayoutMethodTelecelCash  PayoutMethod = "telecel_cash"
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
)

func (m PayoutMethod) String() string {
	return string(m)
}

func (m PayoutMethod) Validate() error {
	allowed := []PayoutMethod{
		PayoutMethodMTNMoMo,
		PayoutMethodTelecelCash,
		PayoutMethodBankTransfer,
	}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid payout method: %s", m)
	}
	return nil
}
