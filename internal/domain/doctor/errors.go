package doctor

import "errors"

var (
	ErrDoctorNotFound         = errors.New("doctor not found")
	ErrServiceAlreadyAssigned = errors.New("doctor already offers this service")
)
