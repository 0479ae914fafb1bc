package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/sims-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	docs     Collection[models.Student]
	observer OperationObserver
	now      func() time.Time
}

// NewStudentRepository constructs a StudentRepository over any document collection.
func NewStudentRepository(docs Collection[models.Student], observer OperationObserver) *StudentRepository {
	return &StudentRepository{docs: docs, observer: observerOrNop(observer), now: time.Now}
}

func (r *StudentRepository) observe(op string, start time.Time) {
	r.observer.ObserveStoreOperation(StudentsCollection.Name, op, time.Since(start))
}

// Save inserts or replaces the student, assigning an id when it has none.
func (r *StudentRepository) Save(ctx context.Context, student *models.Student) error {
	defer r.observe("save", time.Now())

	now := r.now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	student.Normalize()

	if err := r.docs.Put(ctx, student.ID, *student); err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}

// FindByID fetches a student; ErrNotFound when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	defer r.observe("find_by_id", time.Now())

	student, err := r.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	student.Normalize()
	return &student, nil
}

// FindAll returns every student in insertion order.
func (r *StudentRepository) FindAll(ctx context.Context) ([]models.Student, error) {
	defer r.observe("find_all", time.Now())

	students, err := r.docs.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return normalizeStudents(students), nil
}

// ExistsByID reports whether the student is stored.
func (r *StudentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	defer r.observe("exists", time.Now())

	exists, err := r.docs.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

// DeleteByID removes the student; a missing id is ignored.
func (r *StudentRepository) DeleteByID(ctx context.Context, id string) error {
	defer r.observe("delete", time.Now())

	if err := r.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// FindByEmail returns the student owning email (exact match); ErrNotFound when none.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	defer r.observe("find_by_email", time.Now())

	students, err := r.docs.FindBy(ctx, models.StudentFieldEmail, email)
	if err != nil {
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	if len(students) == 0 {
		return nil, ErrNotFound
	}
	student := students[0]
	student.Normalize()
	return &student, nil
}

// Search matches term against first name, last name and email. A blank term lists all.
func (r *StudentRepository) Search(ctx context.Context, term string) ([]models.Student, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.FindAll(ctx)
	}
	defer r.observe("search", time.Now())

	students, err := r.docs.Match(ctx, term, models.StudentSearchFields...)
	if err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return normalizeStudents(students), nil
}

func normalizeStudents(students []models.Student) []models.Student {
	if students == nil {
		return []models.Student{}
	}
	for i := range students {
		students[i].Normalize()
	}
	return students
}
