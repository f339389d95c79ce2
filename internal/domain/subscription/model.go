package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Subscription is a fan's enrollment in one creator's tier. At most one
// active subscription exists per (fan, creator) pair; cancellation is a
// status transition, rows are never physically deleted.
type Subscription struct {
	ID        string `db:"id" json:"id"`
	FanID     string `db:"fan_id" json:"fan_id"`
	CreatorID string `db:"creator_id" json:"creator_id"`
	// TierID is the tier the fan currently has access to. Access control
	// reads this field, never a pending change's target tier.
	TierID string `db:"tier_id" json:"tier_id"`
	// PreviousTierID is set only immediately after a tier switch, for audit
	// display.
	PreviousTierID  *string                  `db:"previous_tier_id" json:"previous_tier_id,omitempty"`
	Status          types.SubscriptionStatus `db:"status" json:"status"`
	StartedAt       time.Time                `db:"started_at" json:"started_at"`
	NextBillingDate time.Time                `db:"next_billing_date" json:"next_billing_date"`
	AutoRenew       bool                     `db:"auto_renew" json:"auto_renew"`
	// ProrationCredit is the accumulated downgrade credit applied against the
	// next renewal charge. Never negative.
	ProrationCredit decimal.Decimal `db:"proration_credit" json:"proration_credit"`

	types.BaseModel
}

func (s *Subscription) Validate() error {
	if s.FanID == "" || s.CreatorID == "" {
		return ierr.NewError("fan id and creator id are required").
			WithHint("Subscription must reference a fan and a creator").
			Mark(ierr.ErrValidation)
	}
	if s.TierID == "" {
		return ierr.NewError("tier id is required").
			WithHint("Subscription must reference a tier").
			Mark(ierr.ErrValidation)
	}
	if err := s.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription status").
			Mark(ierr.ErrValidation)
	}
	if s.ProrationCredit.IsNegative() {
		return ierr.NewError("proration credit cannot be negative").
			WithReportableDetails(map[string]any{
				"subscription_id":  s.ID,
				"proration_credit": s.ProrationCredit,
			}).
			Mark(ierr.ErrInvariantViolation)
	}
	return nil
}

// PendingChange is a scheduled downgrade (or any deferred tier change) not
// yet applied. A subscription has at most one pending change at a time;
// creating a new one supersedes the old.
type PendingChange struct {
	ID             string `db:"id" json:"id"`
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	FromTierID     string `db:"from_tier_id" json:"from_tier_id"`
	ToTierID       string `db:"to_tier_id" json:"to_tier_id"`
	ChangeType     types.SubscriptionChangeType `db:"change_type" json:"change_type"`
	// ScheduledDate is the subscription's next billing date at creation time.
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	// ProrationAmount is the credit owed to the fan, stored as an absolute
	// value.
	ProrationAmount decimal.Decimal           `db:"proration_amount" json:"proration_amount"`
	Status          types.PendingChangeStatus `db:"status" json:"status"`

	types.BaseModel
}

// Due reports whether the change should be applied as of now.
func (p *PendingChange) Due(now time.Time) bool {
	return p.Status == types.PendingChangeStatusPending && !p.ScheduledDate.After(now)
}

// Change is one row of the append-only tier transition audit log. Never
// mutated after insert.
type Change struct {
	ID             string  `db:"id" json:"id"`
	SubscriptionID string  `db:"subscription_id" json:"subscription_id"`
	FromTierID     *string `db:"from_tier_id" json:"from_tier_id,omitempty"`
	ToTierID       string  `db:"to_tier_id" json:"to_tier_id"`
	ChangeType     types.SubscriptionChangeType `db:"change_type" json:"change_type"`
	// ProrationAmount is signed: positive for an upgrade charge, negative for
	// a downgrade credit.
	ProrationAmount decimal.Decimal     `db:"proration_amount" json:"proration_amount"`
	EffectiveDate   time.Time           `db:"effective_date" json:"effective_date"`
	BillingImpact   types.BillingImpact `db:"billing_impact" json:"billing_impact"`
	Reason          string              `db:"reason" json:"reason"`
	// IdempotencyKey dedupes replayed switch applications; unique in storage.
	IdempotencyKey string `db:"idempotency_key" json:"idempotency_key"`

	types.BaseModel
}
