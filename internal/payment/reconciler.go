package payment

import (
	"fmt"
	"math"

	"github.com/comanda-labs/comanda/pkg/errorbank"
)

// Method identifies how an order was settled.
type Method string

const (
	MethodCash  Method = "cash"
	MethodCard  Method = "card"
	MethodQR    Method = "qr"
	MethodMixed Method = "mixed"
)

// Tolerance is the cent granularity used when comparing split sums
// against the order total. Sub-cent floating point noise is absorbed; a
// payment short by a full cent is not. It is not a discount mechanism.
const Tolerance = 0.01

// Split is one component of a mixed payment.
type Split struct {
	Method Method  `json:"method"`
	Amount float64 `json:"amount"`
}

// ParseMethod validates a raw payment method value.
func ParseMethod(raw string) (Method, bool) {
	switch m := Method(raw); m {
	case MethodCash, MethodCard, MethodQR, MethodMixed:
		return m, true
	default:
		return "", false
	}
}

// Reconcile verifies that the proposed payment covers the order total.
// A single non-mixed method is assumed to collect the full total and must
// not carry splits. A mixed payment must itemize splits whose sum matches
// the total within Tolerance.
func Reconcile(total float64, method Method, splits []Split) error {
	if method != MethodMixed {
		if len(splits) > 0 {
			return errorbank.BadRequest("payment splits are only accepted for mixed payments")
		}
		return nil
	}

	if len(splits) == 0 {
		return errorbank.BadRequest("mixed payment requires at least one split")
	}

	var paid float64
	for i, split := range splits {
		if split.Method == MethodMixed {
			return errorbank.BadRequest(fmt.Sprintf("split %d: mixed is not a valid split method", i))
		}
		if _, ok := ParseMethod(string(split.Method)); !ok {
			return errorbank.BadRequest(fmt.Sprintf("split %d: unknown payment method %q", i, split.Method))
		}
		if split.Amount <= 0 {
			return errorbank.BadRequest(fmt.Sprintf("split %d: amount must be positive", i))
		}
		paid += split.Amount
	}

	// Compare in whole cents: 4.00+5.99 sums to just under 9.99 in
	// float64, and a naive diff against Tolerance would let a payment
	// one cent short of the total through.
	if math.Round(math.Abs(paid-total)/Tolerance) >= 1 {
		return errorbank.InsufficientPayment(paid, total)
	}
	return nil
}
