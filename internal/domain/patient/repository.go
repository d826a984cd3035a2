package patient

import (
	"context"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on duplicate document.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Patient, error)

	// Update applies partial updates to an existing patient record.
	Update(ctx context.Context, id int64, cmd *UpdatePatientCommand) (*Patient, error)

	// Deactivate flags the patient inactive; appointment history is retained.
	Deactivate(ctx context.Context, id int64) error

	// List returns a paginated, filtered list of patients.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// ExistsByDocument checks for uniqueness without fetching the full record.
	ExistsByDocument(ctx context.Context, document string, excludeID *int64) (bool, error)
}
