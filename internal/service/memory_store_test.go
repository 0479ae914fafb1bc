package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
)

type memStudentRepo struct {
	mu       sync.Mutex
	order    []string
	items    map[string]models.Student
	saveErr  error
	findAlls int
}

func newMemStudentRepo(students ...models.Student) *memStudentRepo {
	r := &memStudentRepo{items: map[string]models.Student{}}
	for i := range students {
		_ = r.Save(context.Background(), &students[i])
	}
	return r
}

func cloneStudent(s models.Student) models.Student {
	s.ScheduleIDs = append([]string{}, s.ScheduleIDs...)
	return s
}

func (r *memStudentRepo) Save(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.Normalize()
	for id, existing := range r.items {
		if id != student.ID && student.Email != "" && existing.Email == student.Email {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.items[student.ID]; !ok {
		r.order = append(r.order, student.ID)
	}
	r.items[student.ID] = cloneStudent(*student)
	return nil
}

func (r *memStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneStudent(student)
	return &clone, nil
}

func (r *memStudentRepo) FindAll(_ context.Context) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findAlls++
	out := make([]models.Student, 0, len(r.order))
	for _, id := range r.order {
		if student, ok := r.items[id]; ok {
			out = append(out, cloneStudent(student))
		}
	}
	return out, nil
}

func (r *memStudentRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	return ok, nil
}

func (r *memStudentRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	r.order, _ = models.RemoveID(r.order, id)
	return nil
}

func (r *memStudentRepo) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	all, _ := r.FindAll(ctx)
	for _, student := range all {
		if student.Email == email {
			s := student
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memStudentRepo) Search(ctx context.Context, term string) ([]models.Student, error) {
	all, _ := r.FindAll(ctx)
	term = strings.TrimSpace(term)
	if term == "" {
		return all, nil
	}
	needle := strings.ToLower(term)
	out := make([]models.Student, 0)
	for _, student := range all {
		for _, value := range []string{student.FirstName, student.LastName, student.Email} {
			if strings.Contains(strings.ToLower(value), needle) {
				out = append(out, student)
				break
			}
		}
	}
	return out, nil
}

// raw returns the stored record without cloning for assertions.
func (r *memStudentRepo) raw(id string) (models.Student, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	return s, ok
}

type memScheduleRepo struct {
	mu      sync.Mutex
	order   []string
	items   map[string]models.ClassSchedule
	saveErr error
}

func newMemScheduleRepo(schedules ...models.ClassSchedule) *memScheduleRepo {
	r := &memScheduleRepo{items: map[string]models.ClassSchedule{}}
	for i := range schedules {
		_ = r.Save(context.Background(), &schedules[i])
	}
	return r
}

func cloneSchedule(c models.ClassSchedule) models.ClassSchedule {
	c.StudentIDs = append([]string{}, c.StudentIDs...)
	return c
}

func (r *memScheduleRepo) Save(_ context.Context, schedule *models.ClassSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.Normalize()
	if _, ok := r.items[schedule.ID]; !ok {
		r.order = append(r.order, schedule.ID)
	}
	r.items[schedule.ID] = cloneSchedule(*schedule)
	return nil
}

func (r *memScheduleRepo) FindByID(_ context.Context, id string) (*models.ClassSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneSchedule(schedule)
	return &clone, nil
}

func (r *memScheduleRepo) FindAll(_ context.Context) ([]models.ClassSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ClassSchedule, 0, len(r.order))
	for _, id := range r.order {
		if schedule, ok := r.items[id]; ok {
			out = append(out, cloneSchedule(schedule))
		}
	}
	return out, nil
}

func (r *memScheduleRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	return ok, nil
}

func (r *memScheduleRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	r.order, _ = models.RemoveID(r.order, id)
	return nil
}

func (r *memScheduleRepo) Search(ctx context.Context, term string) ([]models.ClassSchedule, error) {
	all, _ := r.FindAll(ctx)
	term = strings.TrimSpace(term)
	if term == "" {
		return all, nil
	}
	needle := strings.ToLower(term)
	out := make([]models.ClassSchedule, 0)
	for _, schedule := range all {
		if strings.Contains(strings.ToLower(schedule.ClassName), needle) || strings.Contains(strings.ToLower(schedule.Instructor), needle) {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) raw(id string) (models.ClassSchedule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	return c, ok
}

func (r *memScheduleRepo) setSaveErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// linkViolations runs the reconciliation scan over the in-memory stores.
func linkViolations(students *memStudentRepo, schedules *memScheduleRepo) []models.LinkViolation {
	ctx := context.Background()
	allStudents, _ := students.FindAll(ctx)
	allSchedules, _ := schedules.FindAll(ctx)
	return findViolations(allStudents, allSchedules)
}
