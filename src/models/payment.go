package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents the method used for payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCard         PaymentMethod = "card"
)

// Payment is money received from a tenant towards a billing period
type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	BillID      *uuid.UUID      `json:"bill_id,omitempty" db:"bill_id"`
	Period      Period          `json:"period"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Method      PaymentMethod   `json:"method" db:"method"`
	Reference   string          `json:"reference,omitempty" db:"reference"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Validation errors
var (
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

// Validate validates the payment
func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidPaymentAmount
	}
	switch p.Method {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodUPI,
		PaymentMethodCheque, PaymentMethodCard:
	default:
		return ErrInvalidPaymentMethod
	}
	return p.Period.Validate()
}

// SumPayments totals the payment amounts
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
