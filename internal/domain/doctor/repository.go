package doctor

import (
	"context"
)

type Repository interface {
	// Create persists the doctor and links the given services in one transaction.
	Create(ctx context.Context, d *Doctor, serviceIDs []int64) error

	// GetByID returns ErrDoctorNotFound if no such doctor exists.
	GetByID(ctx context.Context, id int64) (*Doctor, error)

	List(ctx context.Context, q *ListDoctorsQuery) ([]*Doctor, error)

	// ListActiveByService returns active doctors offering serviceID, ordered by id.
	ListActiveByService(ctx context.Context, serviceID int64) ([]*Doctor, error)

	IsOfferingService(ctx context.Context, doctorID, serviceID int64) (bool, error)

	// AssignService returns ErrServiceAlreadyAssigned for a duplicate pair.
	AssignService(ctx context.Context, doctorID, serviceID int64) error
}
