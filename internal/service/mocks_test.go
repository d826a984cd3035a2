package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

// -- Mock Repositories --

type mockAppointmentRepo struct {
	mu     sync.Mutex
	nextID int64
	appts  map[int64]*appointment.Appointment

	// failWith, when set, is returned by every call.
	failWith error
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[int64]*appointment.Appointment)}
}

func (m *mockAppointmentRepo) FindScheduled(_ context.Context, doctorID int64, date time.Time) ([]appointment.Booked, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var out []appointment.Booked
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(appointment.NormalizeDate(date)) && a.Status == appointment.StatusScheduled {
			out = append(out, appointment.Booked{AppointmentID: a.ID, Time: a.Time})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// InsertIfSlotFree enforces the same rule as the partial unique index.
func (m *mockAppointmentRepo) InsertIfSlotFree(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	for _, existing := range m.appts {
		if existing.Status == appointment.StatusScheduled &&
			existing.DoctorID == a.DoctorID &&
			existing.Date.Equal(a.Date) &&
			existing.Time == a.Time {
			return &appointment.SlotConflictError{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
		}
	}
	m.nextID++
	a.ID = m.nextID
	stored := *a
	m.appts[a.ID] = &stored
	return nil
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, id int64, from, to appointment.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	a, ok := m.appts[id]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	if a.Status != from {
		return appointment.ErrStatusChanged
	}
	return a.TransitionTo(to, at)
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) GetView(ctx context.Context, id int64) (*appointment.View, error) {
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(a), nil
}

func (m *mockAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var views []*appointment.View
	for _, a := range m.appts {
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.Date != nil && !a.Date.Equal(appointment.NormalizeDate(*q.Date)) {
			continue
		}
		views = append(views, viewOf(a))
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].Date.Equal(views[j].Date) {
			return views[i].Date.Before(views[j].Date)
		}
		if views[i].Time != views[j].Time {
			return views[i].Time < views[j].Time
		}
		return views[i].ID < views[j].ID
	})
	return &appointment.PagedAppointments{
		Appointments: views,
		TotalCount:   int64(len(views)),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   1,
	}, nil
}

func (m *mockAppointmentRepo) scheduledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appts {
		if a.Status == appointment.StatusScheduled {
			n++
		}
	}
	return n
}

func viewOf(a *appointment.Appointment) *appointment.View {
	return &appointment.View{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		ServiceID: a.ServiceID,
		Date:      a.Date,
		Time:      a.Time,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}

type mockPatientRepo struct {
	mu       sync.Mutex
	nextID   int64
	patients map[int64]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[int64]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.Document == p.Document {
			return patient.ErrPatientAlreadyExists
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, id int64, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.LastName != nil {
		p.LastName = *cmd.LastName
	}
	if cmd.Phone != nil {
		p.Phone = *cmd.Phone
	}
	if cmd.Email != nil {
		p.Email = *cmd.Email
	}
	if cmd.InsuranceID != nil {
		p.InsuranceID = *cmd.InsuranceID
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return patient.ErrPatientNotFound
	}
	p.Active = false
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*patient.Patient
	for _, p := range m.patients {
		if p.Active || q.IncludeInactive {
			out = append(out, p)
		}
	}
	return &patient.PagedPatients{Patients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize}, nil
}

func (m *mockPatientRepo) ExistsByDocument(_ context.Context, document string, excludeID *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.Document == document && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

type mockDoctorRepo struct {
	mu       sync.Mutex
	nextID   int64
	doctors  map[int64]*doctor.Doctor
	services map[int64]map[int64]bool // doctor id -> service ids
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[int64]*doctor.Doctor), services: make(map[int64]map[int64]bool)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *doctor.Doctor, serviceIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	cp := *d
	m.doctors[d.ID] = &cp
	m.services[d.ID] = make(map[int64]bool)
	for _, sid := range serviceIDs {
		m.services[d.ID][sid] = true
	}
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id int64) (*doctor.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) List(_ context.Context, q *doctor.ListDoctorsQuery) ([]*doctor.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*doctor.Doctor
	for id, d := range m.doctors {
		if q.ServiceID != nil && !m.services[id][*q.ServiceID] {
			continue
		}
		if q.ActiveOnly && !d.Active {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockDoctorRepo) ListActiveByService(ctx context.Context, serviceID int64) ([]*doctor.Doctor, error) {
	return m.List(ctx, &doctor.ListDoctorsQuery{ServiceID: &serviceID, ActiveOnly: true})
}

func (m *mockDoctorRepo) IsOfferingService(_ context.Context, doctorID, serviceID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.services[doctorID][serviceID], nil
}

func (m *mockDoctorRepo) AssignService(_ context.Context, doctorID, serviceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.services[doctorID][serviceID] {
		return doctor.ErrServiceAlreadyAssigned
	}
	if m.services[doctorID] == nil {
		m.services[doctorID] = make(map[int64]bool)
	}
	m.services[doctorID][serviceID] = true
	return nil
}

type mockCatalogRepo struct {
	mu         sync.Mutex
	services   map[int64]*catalog.Service
	insurances map[int64]*catalog.Insurance
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{services: make(map[int64]*catalog.Service), insurances: make(map[int64]*catalog.Insurance)}
}

func (m *mockCatalogRepo) GetService(_ context.Context, id int64) (*catalog.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockCatalogRepo) ListServices(_ context.Context, activeOnly bool) ([]*catalog.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Service
	for _, s := range m.services {
		if s.Active || !activeOnly {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCatalogRepo) CreateService(_ context.Context, s *catalog.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.services {
		if existing.Name == s.Name {
			return catalog.ErrDuplicateName
		}
	}
	s.ID = int64(len(m.services) + 1)
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetInsurance(_ context.Context, id int64) (*catalog.Insurance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.insurances[id]
	if !ok {
		return nil, catalog.ErrInsuranceNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *mockCatalogRepo) ListInsurances(_ context.Context, activeOnly bool) ([]*catalog.Insurance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Insurance
	for _, i := range m.insurances {
		if i.Active || !activeOnly {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (m *mockCatalogRepo) CreateInsurance(_ context.Context, i *catalog.Insurance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.insurances {
		if existing.Name == i.Name {
			return catalog.ErrDuplicateName
		}
	}
	i.ID = int64(len(m.insurances) + 1)
	cp := *i
	m.insurances[i.ID] = &cp
	return nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *mockAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) RecordFailedLogin(_ context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.FailedLoginCount++
	if u.FailedLoginCount >= maxAttempts {
		u.LockedUntil = &lockUntil
	}
	return nil
}

func (m *mockUserRepo) RecordSuccessfulLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// -- Fixture --

type fixture struct {
	appointments *mockAppointmentRepo
	patients     *mockPatientRepo
	doctors      *mockDoctorRepo
	catalog      *mockCatalogRepo
	auditRepo    *mockAuditRepo
	audit        *AuditService
	metrics      *metrics.Collector

	availability *AvailabilityService
	booking      *AppointmentService
}

// newFixture builds services over mocks holding two active patients (1, 2), one
// inactive patient (3), doctors 1 and 2 offering service 1, an inactive doctor 3,
// and service 2 which nobody offers.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		appointments: newMockAppointmentRepo(),
		patients:     newMockPatientRepo(),
		doctors:      newMockDoctorRepo(),
		catalog:      newMockCatalogRepo(),
		auditRepo:    &mockAuditRepo{},
		metrics:      metrics.NewCollector("clinicflow_test", prometheus.NewRegistry()),
	}
	log := zap.NewNop()
	f.audit = NewAuditService(f.auditRepo, log, f.metrics)
	t.Cleanup(func() { f.audit.Shutdown(context.Background()) })

	ctx := context.Background()
	f.catalog.services[1] = &catalog.Service{ID: 1, Name: "General Consultation", Active: true}
	f.catalog.services[2] = &catalog.Service{ID: 2, Name: "Neurology", Active: true}
	f.catalog.services[3] = &catalog.Service{ID: 3, Name: "Retired", Active: false}
	f.catalog.insurances[1] = &catalog.Insurance{ID: 1, Name: "Insurance A", Active: true}
	f.catalog.insurances[2] = &catalog.Insurance{ID: 2, Name: "Old plan", Active: false}

	for i, doc := range []string{"100", "200", "300"} {
		p := &patient.Patient{FirstName: "P", LastName: doc, Document: doc, InsuranceID: 1, Active: i < 2}
		if err := f.patients.Create(ctx, p); err != nil {
			t.Fatalf("seeding patient: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		d := &doctor.Doctor{FirstName: "D", LastName: "Doc", Active: i < 2}
		if err := f.doctors.Create(ctx, d, []int64{1}); err != nil {
			t.Fatalf("seeding doctor: %v", err)
		}
	}

	f.availability = NewAvailabilityService(f.appointments, f.doctors, f.catalog, f.metrics, log)
	f.booking = NewAppointmentService(f.appointments, f.patients, f.doctors, f.catalog, f.audit, f.metrics, log)
	return f
}

var day = time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)

func bookCmd(patientID, doctorID int64, slot string) *appointment.BookCommand {
	return &appointment.BookCommand{PatientID: patientID, DoctorID: doctorID, Date: day, Time: slot}
}
