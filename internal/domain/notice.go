package domain

import (
	"fmt"
	"time"
)

type NoticeKind string

const (
	NoticeKindPayment      NoticeKind = "payment"
	NoticeKindRegistration NoticeKind = "registration"
)

type Notice struct {
	Key            string     `json:"key"`
	Kind           NoticeKind `json:"kind"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	PaymentID      *int64     `json:"payment_id,omitempty"`
	RegistrationID *int64     `json:"registration_id,omitempty"`
}

func PaymentNoticeKey(id int64) string {
	return fmt.Sprintf("payment-%d", id)
}

func RegistrationNoticeKey(id int64) string {
	return fmt.Sprintf("reg-%d", id)
}
