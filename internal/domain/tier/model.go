package tier

import (
	"github.com/shopspring/decimal"

	ierr "github.com/RasParker/XclusiveAfrica-sub000/internal/errors"
	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// Tier is a creator-defined subscription price point. Price and description
// edits are allowed while referenced by live subscriptions, but existing
// subscribers keep the price they signed up at until they explicitly switch;
// price changes are never retroactive.
type Tier struct {
	ID        string          `db:"id" json:"id"`
	CreatorID string          `db:"creator_id" json:"creator_id"`
	Name      string          `db:"name" json:"name"`
	// Price is per billing cycle in the tier's currency
	Price    decimal.Decimal `db:"price" json:"price"`
	Currency string          `db:"currency" json:"currency"`
	Benefits []string        `db:"-" json:"benefits,omitempty"`
	Active   bool            `db:"active" json:"active"`

	types.BaseModel
}

func (t *Tier) Validate() error {
	if t.CreatorID == "" {
		return ierr.NewError("creator id is required").
			WithHint("Tier must belong to a creator").
			Mark(ierr.ErrValidation)
	}
	if t.Name == "" {
		return ierr.NewError("tier name is required").
			WithHint("Tier name cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if t.Price.IsNegative() {
		return ierr.NewError("invalid tier price").
			WithHint("Tier price must not be negative").
			WithReportableDetails(map[string]any{
				"price": t.Price,
			}).
			Mark(ierr.ErrValidation)
	}
	if len(t.Currency) != 3 {
		return ierr.NewError("invalid currency").
			WithHint("Currency must be a three-letter ISO code").
			Mark(ierr.ErrValidation)
	}
	return nil
}
