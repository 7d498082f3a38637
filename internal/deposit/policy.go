package deposit

import (
	"time"

	"github.com/shopspring/decimal"
)

const PaymentMethodCounter = "counter"

// Config holds the deposit rules for counter payments.
type Config struct {
	CancelWindow    time.Duration
	Ratio           float64
	RefreshInterval time.Duration
}

// DefaultConfig returns a one day cancellation window, a 30% deposit and a
// one minute refresh.
func DefaultConfig() Config {
	return Config{
		CancelWindow:    24 * time.Hour,
		Ratio:           0.3,
		RefreshInterval: time.Minute,
	}
}

// IsDepositRequired is true iff the booking is paid at the counter and the
// slot starts later than the cancellation window.
func IsDepositRequired(paymentMethod string, minutesUntilStart, cancelWindowMinutes int64) bool {
	return paymentMethod == PaymentMethodCounter && minutesUntilStart > cancelWindowMinutes
}

// DepositAmount is round(courtFee × ratio), half away from zero.
func DepositAmount(courtFee int64, ratio float64) int64 {
	return decimal.NewFromInt(courtFee).
		Mul(decimal.NewFromFloat(ratio)).
		Round(0).
		IntPart()
}

// Decision is one evaluation of the deposit rule.
type Decision struct {
	Required          bool      `json:"required"`
	Amount            int64     `json:"amount"`
	PaymentMethod     string    `json:"payment_method"`
	MinutesUntilStart int64     `json:"minutes_until_start"`
	EvaluatedAt       time.Time `json:"evaluated_at"`
	// Flipped is set by a Watcher when Required differs from its previous decision.
	Flipped bool `json:"flipped"`
}

type Policy struct {
	cfg Config
}

func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// Config returns the policy's settings.
func (p *Policy) Config() Config {
	return p.cfg
}

// Evaluate decides whether a deposit is due at now for a slot starting at
// slotStart. Partial minutes are truncated.
func (p *Policy) Evaluate(now, slotStart time.Time, paymentMethod string, courtFee int64) Decision {
	minutes := int64(slotStart.Sub(now) / time.Minute)
	required := IsDepositRequired(paymentMethod, minutes, int64(p.cfg.CancelWindow/time.Minute))

	d := Decision{
		Required:          required,
		PaymentMethod:     paymentMethod,
		MinutesUntilStart: minutes,
		EvaluatedAt:       now,
	}
	if required {
		d.Amount = DepositAmount(courtFee, p.cfg.Ratio)
	}
	return d
}
