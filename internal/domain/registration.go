package domain

import "strings"

type RegistrationStatus string

const (
	RegistrationStatusQueued     RegistrationStatus = "排队中"
	RegistrationStatusInProgress RegistrationStatus = "就诊中"
	RegistrationStatusCompleted  RegistrationStatus = "已完成"
	RegistrationStatusCancelled  RegistrationStatus = "已取消"
	RegistrationStatusExpired    RegistrationStatus = "已过期"
)

var legacyRegistrationStatuses = map[RegistrationStatus]RegistrationStatus{
	"待就诊": RegistrationStatusQueued,
	"办理中": RegistrationStatusInProgress,
	"已就诊": RegistrationStatusCompleted,
	"已结束": RegistrationStatusCompleted,
}

// Normalize maps legacy labels onto their canonical status. Unknown labels pass through.
func (s RegistrationStatus) Normalize() RegistrationStatus {
	if canonical, ok := legacyRegistrationStatuses[s]; ok {
		return canonical
	}
	return s
}

type Registration struct {
	ID        int64
	VisitDate string
	Status    RegistrationStatus
}

// VisitDay returns the date portion (YYYY-MM-DD) of VisitDate.
func (r Registration) VisitDay() string {
	day, _, _ := strings.Cut(strings.TrimSpace(r.VisitDate), "T")
	day, _, _ = strings.Cut(day, " ")
	return day
}
