package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

// -- Requests --

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	DoctorID  *int64 `json:"doctor_id"`
}

// Identifiers are not tagged as required so the service can report every
// missing field at once.
type bookAppointmentRequest struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	ServiceID *int64 `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type createPatientRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Document    string `json:"document"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	InsuranceID int64  `json:"insurance_id"`
}

type updatePatientRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	InsuranceID *int64  `json:"insurance_id"`
}

type createDoctorRequest struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Specialty  string  `json:"specialty"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	ServiceIDs []int64 `json:"service_ids"`
}

type assignServiceRequest struct {
	ServiceID int64 `json:"service_id" binding:"required"`
}

type catalogEntryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// -- Responses --

type pagedResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	DoctorID  *int64 `json:"doctor_id,omitempty"`
}

type appointmentResponse struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patient_id"`
	DoctorID    int64      `json:"doctor_id"`
	ServiceID   *int64     `json:"service_id,omitempty"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		ServiceID:   a.ServiceID,
		Date:        a.Date.Format(appointment.DateLayout),
		Time:        a.Time,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		CompletedAt: a.CompletedAt,
		CancelledAt: a.CancelledAt,
	}
}

type appointmentViewResponse struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	DoctorID    int64     `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	ServiceID   *int64    `json:"service_id,omitempty"`
	ServiceName string    `json:"service_name,omitempty"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAppointmentView(v *appointment.View) appointmentViewResponse {
	return appointmentViewResponse{
		ID:          v.ID,
		PatientID:   v.PatientID,
		PatientName: v.PatientName,
		DoctorID:    v.DoctorID,
		DoctorName:  v.DoctorName,
		ServiceID:   v.ServiceID,
		ServiceName: v.ServiceName,
		Date:        v.Date.Format(appointment.DateLayout),
		Time:        v.Time,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt,
	}
}

type availabilityResponse struct {
	DoctorID int64    `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

type availableDoctorResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty,omitempty"`
	FreeSlots []string `json:"free_slots"`
	Available bool     `json:"available"`
}

func toAvailableDoctor(a service.AvailableDoctor) availableDoctorResponse {
	return availableDoctorResponse{
		ID:        a.Doctor.ID,
		Name:      a.Doctor.FullName(),
		Specialty: a.Doctor.Specialty,
		FreeSlots: nonNil(a.FreeSlots),
		Available: a.Available,
	}
}

type patientResponse struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Document    string    `json:"document"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	InsuranceID int64     `json:"insurance_id"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPatientResponse(p *patient.Patient) patientResponse {
	return patientResponse{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Document:    p.Document,
		Phone:       p.Phone,
		Email:       p.Email,
		InsuranceID: p.InsuranceID,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
}

type doctorResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Specialty string `json:"specialty,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Active    bool   `json:"active"`
}

func toDoctorResponse(d *doctor.Doctor) doctorResponse {
	return doctorResponse{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Specialty: d.Specialty,
		Phone:     d.Phone,
		Email:     d.Email,
		Active:    d.Active,
	}
}

type catalogEntryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

func toServiceResponse(s *catalog.Service) catalogEntryResponse {
	return catalogEntryResponse{ID: s.ID, Name: s.Name, Description: s.Description, Active: s.Active}
}

func toInsuranceResponse(i *catalog.Insurance) catalogEntryResponse {
	return catalogEntryResponse{ID: i.ID, Name: i.Name, Description: i.Description, Active: i.Active}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// nonNil keeps empty slot lists serialized as [] instead of null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
