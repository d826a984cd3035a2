package catalog

import "errors"

var (
	ErrServiceNotFound   = errors.New("service not found")
	ErrInsuranceNotFound = errors.New("insurance not found")
	ErrDuplicateName     = errors.New("an entry with this name already exists")
)
