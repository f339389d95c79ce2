package types

import (
	"fmt"

	"github.com/samber/lo"
)

// SubscriptionStatus represents the status of a fan's subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusPaused,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid subscription status: %s", s)
	}
	return nil
}

// SubscriptionChangeType classifies an entry in the tier change audit log
type SubscriptionChangeType string

const (
	SubscriptionChangeTypeUpgrade    SubscriptionChangeType = "upgrade"
	SubscriptionChangeTypeDowngrade  SubscriptionChangeType = "downgrade"
	SubscriptionChangeTypeReactivate SubscriptionChangeType = "reactivate"
	SubscriptionChangeTypeCancel     SubscriptionChangeType = "cancel"
)

func (t SubscriptionChangeType) String() string {
	return string(t)
}

func (t SubscriptionChangeType) Validate() error {
	allowed := []SubscriptionChangeType{
		SubscriptionChangeTypeUpgrade,
		SubscriptionChangeTypeDowngrade,
		SubscriptionChangeTypeReactivate,
		SubscriptionChangeTypeCancel,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid subscription change type: %s", t)
	}
	return nil
}

// BillingImpact indicates when a committed tier change affects billing
type BillingImpact string

const (
	BillingImpactImmediate BillingImpact = "immediate"
	BillingImpactNextCycle BillingImpact = "next_cycle"
)

func (b BillingImpact) String() string {
	return string(b)
}

// PendingChangeStatus represents the status of a deferred tier change
type PendingChangeStatus string

const (
	PendingChangeStatusPending    PendingChangeStatus = "pending"
	PendingChangeStatusProcessing PendingChangeStatus = "processing"
	PendingChangeStatusApplied    PendingChangeStatus = "applied"
	PendingChangeStatusCancelled  PendingChangeStatus = "cancelled"
)

func (s PendingChangeStatus) String() string {
	return string(s)
}

func (s PendingChangeStatus) Validate() error {
	allowed := []PendingChangeStatus{
		PendingChangeStatusPending,
		PendingChangeStatusProcessing,
		PendingChangeStatusApplied,
		PendingChangeStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid pending change status: %s", s)
	}
	return nil
}
