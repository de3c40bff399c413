package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "未缴费"
	PaymentStatusPaid          PaymentStatus = "已缴费"
	PaymentStatusPendingRefund PaymentStatus = "待退费"
	PaymentStatusRefunded      PaymentStatus = "已退费"
)

const PaymentTypeRegistrationFee = "挂号费"

type Payment struct {
	ID     int64
	Type   string
	Amount float64
	Time   time.Time
	Status PaymentStatus
}

// RefundableRegistrationFee reports a registration fee the patient can claim back.
func (p Payment) RefundableRegistrationFee() bool {
	return p.Status == PaymentStatusPendingRefund && p.Type == PaymentTypeRegistrationFee
}

// AwaitsAction reports whether the payment needs the patient's attention.
func (p Payment) AwaitsAction() bool {
	return p.Status == PaymentStatusUnpaid || p.RefundableRegistrationFee()
}
