package models

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusReady          PaymentStatus = "ready"
	PaymentStatusInEntryTracker PaymentStatus = "in_entry_tracker"
	PaymentStatusInBillPay      PaymentStatus = "in_bill_pay"
	PaymentStatusProcessing     PaymentStatus = "processing"
	PaymentStatusProcessed      PaymentStatus = "processed"
	PaymentStatusFailed         PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusReady, PaymentStatusInEntryTracker,
		PaymentStatusInBillPay, PaymentStatusProcessing, PaymentStatusProcessed,
		PaymentStatusFailed:
		return true
	}
	return false
}

// statusTransitions is the payment lifecycle:
// pending -> ready -> in_entry_tracker | in_bill_pay -> processed,
// send-back reversals from processed, and failed reachable from any
// pre-processed state.
var statusTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:        {PaymentStatusReady, PaymentStatusInBillPay, PaymentStatusFailed},
	PaymentStatusReady:          {PaymentStatusPending, PaymentStatusInEntryTracker, PaymentStatusInBillPay, PaymentStatusFailed},
	PaymentStatusInEntryTracker: {PaymentStatusReady, PaymentStatusProcessed, PaymentStatusFailed},
	PaymentStatusInBillPay:      {PaymentStatusProcessed, PaymentStatusFailed},
	PaymentStatusProcessing:     {PaymentStatusProcessed, PaymentStatusFailed},
	PaymentStatusProcessed:      {PaymentStatusInEntryTracker, PaymentStatusInBillPay},
	PaymentStatusFailed:         {},
}

func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodACH   PaymentMethod = "ACH"
	PaymentMethodCheck PaymentMethod = "Check"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodACH || m == PaymentMethodCheck
}

type CreditSource string

const (
	CreditSourceOverpayment    CreditSource = "Overpayment"
	CreditSourceOperatorCredit CreditSource = "Operator Credit"
	CreditSourceCashCallRefund CreditSource = "Cash Call Refund"
	CreditSourceOther          CreditSource = "Other"
)

func (s CreditSource) IsValid() bool {
	switch s {
	case CreditSourceOverpayment, CreditSourceOperatorCredit, CreditSourceCashCallRefund, CreditSourceOther:
		return true
	}
	return false
}
