package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/repotest"
)

func TestPatientRepository_CreateRejectsDuplicateDocument(t *testing.T) {
	db := repotest.NewSeededDB(t)
	repo := NewPatientRepository(db, time.Second)
	ctx := context.Background()

	newPatient(t, db, "7001", "Lucia", "Gomez")

	dup := &patient.Patient{FirstName: "Other", LastName: "Person", Document: "7001", InsuranceID: 1, Active: true}
	if err := repo.Create(ctx, dup); !errors.Is(err, patient.ErrPatientAlreadyExists) {
		t.Fatalf("expected ErrPatientAlreadyExists, got %v", err)
	}

	exists, err := repo.ExistsByDocument(ctx, "7001", nil)
	if err != nil || !exists {
		t.Fatalf("expected document to exist, got %v, %v", exists, err)
	}
}

func TestPatientRepository_ExistsByDocumentExcludesSelf(t *testing.T) {
	db := repotest.NewSeededDB(t)
	repo := NewPatientRepository(db, time.Second)
	p := newPatient(t, db, "7101", "Lucia", "Gomez")

	exists, err := repo.ExistsByDocument(context.Background(), "7101", &p.ID)
	if err != nil {
		t.Fatalf("ExistsByDocument: %v", err)
	}
	if exists {
		t.Fatal("expected own document to be excluded")
	}
}

func TestPatientRepository_UpdateAndDeactivate(t *testing.T) {
	db := repotest.NewSeededDB(t)
	repo := NewPatientRepository(db, time.Second)
	ctx := context.Background()
	p := newPatient(t, db, "7201", "Lucia", "Gomez")

	phone := "555-0101"
	insurance := int64(2)
	updated, err := repo.Update(ctx, p.ID, &patient.UpdatePatientCommand{Phone: &phone, InsuranceID: &insurance})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Phone != phone || updated.InsuranceID != 2 || updated.FirstName != "Lucia" {
		t.Fatalf("unexpected patient after update: %+v", updated)
	}

	if _, err := repo.Update(ctx, 9999, &patient.UpdatePatientCommand{Phone: &phone}); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}

	if err := repo.Deactivate(ctx, p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	stored, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Active {
		t.Fatal("expected patient to be inactive")
	}

	if err := repo.Deactivate(ctx, 9999); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPatientRepository_List(t *testing.T) {
	db := repotest.NewSeededDB(t)
	repo := NewPatientRepository(db, time.Second)
	ctx := context.Background()

	newPatient(t, db, "8001", "Lucia", "Gomez")
	newPatient(t, db, "8002", "Pedro", "Alvarez")
	gone := newPatient(t, db, "8003", "Luis", "Gomez")
	if err := repo.Deactivate(ctx, gone.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	active, err := repo.List(ctx, &patient.ListPatientsQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if active.TotalCount != 2 || active.Patients[0].LastName != "Alvarez" {
		t.Fatalf("unexpected active list: %+v", active.Patients)
	}

	search, err := repo.List(ctx, &patient.ListPatientsQuery{Search: "gOMe", IncludeInactive: true})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if search.TotalCount != 2 {
		t.Fatalf("expected 2 matches, got %d", search.TotalCount)
	}

	byDocument, err := repo.List(ctx, &patient.ListPatientsQuery{Search: "8002"})
	if err != nil {
		t.Fatalf("List by document: %v", err)
	}
	if byDocument.TotalCount != 1 || byDocument.Patients[0].FirstName != "Pedro" {
		t.Fatalf("unexpected document search result: %+v", byDocument.Patients)
	}
}
