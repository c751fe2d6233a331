package events

import (
	"time"

	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/models"
)

// FromResult converts one tenant's generation outcome into an event
func FromResult(period models.Period, res billing.TenantResult, at time.Time) BillEvent {
	ev := BillEvent{
		Period:     period.String(),
		TenantID:   res.TenantID,
		RoomID:     res.RoomID,
		OccurredAt: at,
	}
	if !res.OK() {
		ev.Type = TypeBillFailed
		ev.FailureKind = string(res.Kind)
		ev.Error = res.Error
		return ev
	}

	ev.Type = TypeBillGenerated
	id := res.Bill.ID
	total := res.Bill.TotalDue
	carry := res.Bill.CarryForward
	ev.BillID = &id
	ev.TotalDue = &total
	ev.CarryForward = &carry
	return ev
}

// FromBulkResult converts a whole run, preserving order
func FromBulkResult(result *billing.BulkResult, at time.Time) []BillEvent {
	out := make([]BillEvent, 0, len(result.Results))
	for _, res := range result.Results {
		out = append(out, FromResult(result.Period, res, at))
	}
	return out
}

// LateFeeEvent announces a late fee charged against an overdue bill
func LateFeeEvent(bill *models.Bill, fee models.Charge, at time.Time) BillEvent {
	id := bill.ID
	carry := bill.CarryForward
	amount := fee.Amount
	return BillEvent{
		Type:         TypeLateFee,
		Period:       fee.Period.String(),
		TenantID:     bill.TenantID,
		RoomID:       bill.RoomID,
		BillID:       &id,
		CarryForward: &carry,
		Amount:       &amount,
		OccurredAt:   at,
	}
}
