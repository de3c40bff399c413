package ports

import (
	"context"

	"github.com/hms-project/hmsctl/internal/domain"
)

type PatientAPI interface {
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	ListRegistrations(ctx context.Context) ([]domain.Registration, error)
}
