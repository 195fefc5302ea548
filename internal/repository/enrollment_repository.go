package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/altitutor/admin-api/internal/models"
)

// EnrollmentRepository persists class enrollments (classes_students) and staff assignments (classes_staff).
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListStudents returns every enrollment row of a class, current or not.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, classID string) ([]models.ClassStudent, error) {
	const query = `SELECT cs.id, cs.class_id, cs.student_id, CONCAT_WS(' ', st.first_name, st.last_name) AS student_name, cs.status, cs.start_date, cs.end_date, cs.created_at
FROM classes_students cs
LEFT JOIN students st ON st.id = cs.student_id
WHERE cs.class_id = $1
ORDER BY cs.start_date ASC, student_name ASC`
	var rows []models.ClassStudent
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return rows, nil
}

// ListStaff returns every staff assignment row of a class.
func (r *EnrollmentRepository) ListStaff(ctx context.Context, classID string) ([]models.ClassStaff, error) {
	const query = `SELECT cf.id, cf.class_id, cf.staff_id, CONCAT_WS(' ', sf.first_name, sf.last_name) AS staff_name, cf.type, cf.status, cf.start_date, cf.end_date, cf.created_at
FROM classes_staff cf
LEFT JOIN staff sf ON sf.id = cf.staff_id
WHERE cf.class_id = $1
ORDER BY cf.start_date ASC, staff_name ASC`
	var rows []models.ClassStaff
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list class staff: %w", err)
	}
	return rows, nil
}

// HasActiveStudent checks whether the student already has an open enrollment in the class.
func (r *EnrollmentRepository) HasActiveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM classes_students WHERE class_id = $1 AND student_id = $2 AND status = $3 AND end_date IS NULL LIMIT 1`
	return r.exists(ctx, "check class student", query, classID, studentID, models.EnrollmentStatusActive)
}

// HasActiveStaff checks whether the staff member already has an open assignment in the class.
func (r *EnrollmentRepository) HasActiveStaff(ctx context.Context, classID, staffID string) (bool, error) {
	const query = `SELECT 1 FROM classes_staff WHERE class_id = $1 AND staff_id = $2 AND status = $3 AND end_date IS NULL LIMIT 1`
	return r.exists(ctx, "check class staff", query, classID, staffID, models.EnrollmentStatusActive)
}

func (r *EnrollmentRepository) exists(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	var found int
	if err := r.db.GetContext(ctx, &found, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// CreateStudent enrolls a student.
func (r *EnrollmentRepository) CreateStudent(ctx context.Context, enrollment *models.ClassStudent) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	enrollment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO classes_students (id, class_id, student_id, status, start_date, end_date, created_at)
VALUES (:id, :class_id, :student_id, :status, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create class student: %w", err)
	}
	return nil
}

// CreateStaff assigns a staff member.
func (r *EnrollmentRepository) CreateStaff(ctx context.Context, assignment *models.ClassStaff) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.Status == "" {
		assignment.Status = models.EnrollmentStatusActive
	}
	if assignment.Type == "" {
		assignment.Type = models.StaffRoleMainTutor
	}
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO classes_staff (id, class_id, staff_id, type, status, start_date, end_date, created_at)
VALUES (:id, :class_id, :staff_id, :type, :status, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create class staff: %w", err)
	}
	return nil
}

// EndStudent sets the last attended date on the open enrollment of a student. It reports whether a
// row was closed.
func (r *EnrollmentRepository) EndStudent(ctx context.Context, classID, studentID string, endDate time.Time) (bool, error) {
	const query = `UPDATE classes_students SET end_date = $1 WHERE class_id = $2 AND student_id = $3 AND status = $4 AND end_date IS NULL`
	res, err := r.db.ExecContext(ctx, query, endDate, classID, studentID, models.EnrollmentStatusActive)
	if err != nil {
		return false, fmt.Errorf("end class student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("end class student rows: %w", err)
	}
	return affected > 0, nil
}

// EndStaff closes the open assignment of a staff member.
func (r *EnrollmentRepository) EndStaff(ctx context.Context, classID, staffID string, endDate time.Time) (bool, error) {
	const query = `UPDATE classes_staff SET end_date = $1 WHERE class_id = $2 AND staff_id = $3 AND status = $4 AND end_date IS NULL`
	res, err := r.db.ExecContext(ctx, query, endDate, classID, staffID, models.EnrollmentStatusActive)
	if err != nil {
		return false, fmt.Errorf("end class staff: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("end class staff rows: %w", err)
	}
	return affected > 0, nil
}
