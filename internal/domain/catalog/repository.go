package catalog

import (
	"context"
)

type Repository interface {
	GetService(ctx context.Context, id int64) (*Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]*Service, error)
	CreateService(ctx context.Context, s *Service) error

	GetInsurance(ctx context.Context, id int64) (*Insurance, error)
	ListInsurances(ctx context.Context, activeOnly bool) ([]*Insurance, error)
	CreateInsurance(ctx context.Context, i *Insurance) error
}
