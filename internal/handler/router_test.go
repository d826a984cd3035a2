package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/repotest"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

const testDate = "2030-03-14"

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTManager
	auth   *service.AuthService
	ready  error
}

func newTestServer(t *testing.T, authLimiter middleware.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := repotest.NewSeededDB(t)
	log := zap.NewNop()
	m := metrics.NewCollector("clinicflow_test", prometheus.NewRegistry())
	timeout := 5 * time.Second

	appointments := repository.NewAppointmentRepository(db, timeout)
	patients := repository.NewPatientRepository(db, timeout)
	doctors := repository.NewDoctorRepository(db, timeout)
	catalogRepo := repository.NewCatalogRepository(db, timeout)

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db, timeout), log, m)
	t.Cleanup(func() { auditSvc.Shutdown(context.Background()) })

	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "clinicflow-test",
	})

	if authLimiter == nil {
		authLimiter = middleware.NewIPLimiter(rate.Inf, 1)
	}

	ts := &testServer{jwt: jwt}
	ts.auth = service.NewAuthService(repository.NewUserRepository(db, timeout), jwt, auditSvc, log)
	ts.router = NewRouter(Deps{
		Config: &config.Config{
			App: config.AppConfig{Environment: "test"},
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"http://localhost:3000"},
				AllowedMethods: []string{"GET", "POST", "PATCH"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAge:         time.Hour,
			},
		},
		Log:         log,
		Metrics:     m,
		Tokens:      jwt,
		APILimiter:  middleware.NewIPLimiter(rate.Inf, 1),
		AuthLimiter: authLimiter,
		Ready:       func(context.Context) error { return ts.ready },
		Services: Services{
			Auth:         ts.auth,
			Appointments: service.NewAppointmentService(appointments, patients, doctors, catalogRepo, auditSvc, m, log),
			Availability: service.NewAvailabilityService(appointments, doctors, catalogRepo, m, log),
			Patients:     service.NewPatientService(patients, catalogRepo, auditSvc, m, log),
			Doctors:      service.NewDoctorService(doctors, catalogRepo, auditSvc, log),
			Catalog:      service.NewCatalogService(catalogRepo, auditSvc, log),
		},
	})
	return ts
}

func (ts *testServer) token(t *testing.T, role domain.Role, doctorID *int64) string {
	t.Helper()
	pair, err := ts.jwt.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Email: "staff@clinic.test", Role: role, DoctorID: doctorID})
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	return pair.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return out
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  []string          `json:"fields"`
	Details map[string]string `json:"details"`
}

type availabilityBody struct {
	DoctorID int64    `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

type appointmentBody struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

func (ts *testServer) createPatient(t *testing.T, token, document string) int64 {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/patients", token, map[string]any{
		"first_name":   "Lucia",
		"last_name":    "Gomez",
		"document":     document,
		"insurance_id": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating patient: %d %s", w.Code, w.Body.String())
	}
	return decode[envelope[struct {
		ID int64 `json:"id"`
	}]](t, w).Data.ID
}

func (ts *testServer) slots(t *testing.T, token string, doctorID int) []string {
	t.Helper()
	w := ts.do(t, http.MethodGet, "/api/v1/appointments/availability?doctor_id="+strconv.Itoa(doctorID)+"&date="+testDate, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", w.Code, w.Body.String())
	}
	body := decode[envelope[availabilityBody]](t, w).Data
	if body.Date != testDate {
		t.Fatalf("expected date %s, got %s", testDate, body.Date)
	}
	return body.Slots
}

func TestProbesAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	if w := ts.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", w.Code)
	}

	ts.ready = errors.New("connection refused")
	if w := ts.do(t, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", w.Code)
	}

	w := ts.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "clinicflow_test_http_requests_total") {
		t.Fatalf("metrics: unexpected response %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestBookingLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, domain.RoleReceptionist, nil)
	patientID := ts.createPatient(t, token, "4455")

	if got := ts.slots(t, token, 1); len(got) != 10 {
		t.Fatalf("expected 10 free slots, got %v", got)
	}

	book := map[string]any{"patient_id": patientID, "doctor_id": 1, "date": testDate, "time": "10:00"}
	w := ts.do(t, http.MethodPost, "/api/v1/appointments", token, book)
	if w.Code != http.StatusCreated {
		t.Fatalf("booking: expected 201, got %d %s", w.Code, w.Body.String())
	}
	first := decode[envelope[appointmentBody]](t, w).Data
	if first.Status != "scheduled" || first.Date != testDate || first.Time != "10:00" {
		t.Fatalf("unexpected appointment: %+v", first)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/appointments", token, book)
	if w.Code != http.StatusConflict {
		t.Fatalf("second booking: expected 409, got %d %s", w.Code, w.Body.String())
	}
	if body := decode[errorBody](t, w); body.Code != "SLOT_CONFLICT" || body.Details["time"] != "10:00" {
		t.Fatalf("unexpected conflict body: %+v", body)
	}

	if got := ts.slots(t, token, 1); len(got) != 9 || slices.Contains(got, "10:00") {
		t.Fatalf("expected 10:00 to be taken, got %v", got)
	}

	path := "/api/v1/appointments/" + strconv.FormatInt(first.ID, 10) + "/status"
	w = ts.do(t, http.MethodPatch, path, token, map[string]string{"status": "cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d %s", w.Code, w.Body.String())
	}

	if got := ts.slots(t, token, 1); len(got) != 10 {
		t.Fatalf("expected the slot to be free again, got %v", got)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/appointments", token, book)
	if w.Code != http.StatusCreated {
		t.Fatalf("rebooking: expected 201, got %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPatch, path, token, map[string]string{"status": "completed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("completing a cancelled appointment: expected 409, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Code != "INVALID_TRANSITION" || body.Details["from"] != "cancelled" {
		t.Fatalf("unexpected transition body: %+v", body)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/appointments?date="+testDate+"&doctor_id=1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	list := decode[envelope[struct {
		Items []struct {
			PatientName string `json:"patient_name"`
			DoctorName  string `json:"doctor_name"`
			Status      string `json:"status"`
		} `json:"items"`
		TotalCount int64 `json:"total_count"`
	}]](t, w).Data
	if list.TotalCount != 2 || list.Items[0].PatientName != "Lucia Gomez" || list.Items[0].DoctorName != "Juan Pérez" {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestBookingValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, domain.RoleReceptionist, nil)
	patientID := ts.createPatient(t, token, "9001")

	for _, slot := range []string{"07:00", "18:00", "10:30"} {
		w := ts.do(t, http.MethodPost, "/api/v1/appointments", token, map[string]any{
			"patient_id": patientID, "doctor_id": 1, "date": testDate, "time": slot,
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", slot, w.Code)
		}
		body := decode[errorBody](t, w)
		if len(body.Fields) != 1 || !strings.HasPrefix(body.Fields[0], "time ") {
			t.Fatalf("%s: unexpected fields %v", slot, body.Fields)
		}
	}

	w := ts.do(t, http.MethodPost, "/api/v1/appointments", token, map[string]any{
		"patient_id": patientID, "doctor_id": 1, "date": "14/03/2030", "time": "09:00",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed date: expected 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/appointments", token, map[string]any{
		"patient_id": patientID, "doctor_id": 99, "date": testDate, "time": "09:00",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown doctor: expected 404, got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/appointments?status=archived", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter: expected 400, got %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/api/v1/appointments/availability?doctor_id=abc&date="+testDate, token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed doctor_id: expected 400, got %d", w.Code)
	}
}

func TestAvailableDoctors(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, domain.RoleReceptionist, nil)

	// Cardiology is offered only by María González.
	w := ts.do(t, http.MethodGet, "/api/v1/doctors/available?service_id=2&date="+testDate, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	doctors := decode[envelope[[]struct {
		ID        int64    `json:"id"`
		Name      string   `json:"name"`
		FreeSlots []string `json:"free_slots"`
		Available bool     `json:"available"`
	}]](t, w).Data
	if len(doctors) != 1 || doctors[0].Name != "María González" || len(doctors[0].FreeSlots) != 10 || !doctors[0].Available {
		t.Fatalf("unexpected doctors: %+v", doctors)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/doctors/available?service_id=42&date="+testDate, token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown service: expected 404, got %d", w.Code)
	}
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t, nil)

	if w := ts.do(t, http.MethodGet, "/api/v1/appointments", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/appointments", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}

	receptionist := ts.token(t, domain.RoleReceptionist, nil)
	w := ts.do(t, http.MethodPost, "/api/v1/services", receptionist, map[string]string{"name": "Oncology"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("receptionist creating a service: expected 403, got %d", w.Code)
	}

	admin := ts.token(t, domain.RoleAdmin, nil)
	w = ts.do(t, http.MethodPost, "/api/v1/services", admin, map[string]string{"name": "Oncology"})
	if w.Code != http.StatusCreated {
		t.Fatalf("admin creating a service: expected 201, got %d %s", w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodPost, "/api/v1/services", admin, map[string]string{"name": "Oncology"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate service: expected 409, got %d", w.Code)
	}
}

func TestDoctorSeesOwnSchedule(t *testing.T) {
	ts := newTestServer(t, nil)
	receptionist := ts.token(t, domain.RoleReceptionist, nil)
	patientID := ts.createPatient(t, receptionist, "7788")

	var ids []int64
	for _, doctorID := range []int{1, 2} {
		w := ts.do(t, http.MethodPost, "/api/v1/appointments", receptionist, map[string]any{
			"patient_id": patientID, "doctor_id": doctorID, "date": testDate, "time": "09:00",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("booking: %d %s", w.Code, w.Body.String())
		}
		ids = append(ids, decode[envelope[appointmentBody]](t, w).Data.ID)
	}

	doctorID := int64(2)
	doctor := ts.token(t, domain.RoleDoctor, &doctorID)

	w := ts.do(t, http.MethodGet, "/api/v1/appointments", doctor, nil)
	list := decode[envelope[struct {
		TotalCount int64 `json:"total_count"`
	}]](t, w).Data
	if w.Code != http.StatusOK || list.TotalCount != 1 {
		t.Fatalf("expected only the doctor's own appointment, got %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPatch, "/api/v1/appointments/"+strconv.FormatInt(ids[0], 10)+"/status", doctor, map[string]string{"status": "completed"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("closing another doctor's appointment: expected 403, got %d", w.Code)
	}
	w = ts.do(t, http.MethodPatch, "/api/v1/appointments/"+strconv.FormatInt(ids[1], 10)+"/status", doctor, map[string]string{"status": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("closing own appointment: expected 200, got %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/api/v1/appointments", doctor, map[string]any{
		"patient_id": patientID, "doctor_id": 2, "date": testDate, "time": "11:00",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("doctor booking: expected 403, got %d", w.Code)
	}
}

func TestLoginAndRateLimit(t *testing.T) {
	ts := newTestServer(t, middleware.PerMinute(3))

	_, err := ts.auth.CreateUser(context.Background(), &service.CreateUserCommand{
		Email: "front@clinic.test", Password: "correct-horse-battery", FirstName: "Eva", LastName: "Diaz", Role: domain.RoleReceptionist,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	w := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "front@clinic.test", "password": "correct-horse-battery"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", w.Code, w.Body.String())
	}
	pair := decode[envelope[domain.TokenPair]](t, w).Data
	if w := ts.do(t, http.MethodGet, "/api/v1/services", pair.AccessToken, nil); w.Code != http.StatusOK {
		t.Fatalf("using issued token: expected 200, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "front@clinic.test", "password": "wrong-password!"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "front@clinic.test", "password": "correct-horse-battery"})
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("fourth auth call: expected 429 with Retry-After, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestStatusLabelsIgnoreCase(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, domain.RoleReceptionist, nil)
	patientID := ts.createPatient(t, token, "5566")

	w := ts.do(t, http.MethodPost, "/api/v1/appointments", token, map[string]any{
		"patient_id": patientID, "doctor_id": 1, "date": testDate, "time": "15:00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("booking: expected 201, got %d %s", w.Code, w.Body.String())
	}
	path := "/api/v1/appointments/" + strconv.FormatInt(decode[envelope[appointmentBody]](t, w).Data.ID, 10) + "/status"

	w = ts.do(t, http.MethodGet, "/api/v1/appointments?status=Scheduled", token, nil)
	list := decode[envelope[struct {
		TotalCount int64 `json:"total_count"`
	}]](t, w).Data
	if w.Code != http.StatusOK || list.TotalCount != 1 {
		t.Fatalf("filtering by Scheduled: expected one row, got %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPatch, path, token, map[string]string{"status": "Cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancelling: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if got := decode[envelope[appointmentBody]](t, w).Data.Status; got != "cancelled" {
		t.Fatalf("expected the canonical label, got %q", got)
	}

	w = ts.do(t, http.MethodPatch, path, token, map[string]string{"status": "Completed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("completing a cancelled appointment: expected 409, got %d %s", w.Code, w.Body.String())
	}
	if body := decode[errorBody](t, w); body.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %+v", body)
	}
}
