package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/altitutor/admin-api/internal/models"
)

const sessionStudentSelect = `SELECT ss.id, ss.session_id, ss.student_id, CONCAT_WS(' ', st.first_name, st.last_name) AS student_name, ss.planned_absence, ss.is_rescheduled, ss.rescheduled_session_student_id, ss.is_credited, ss.created_by, ss.created_at, ss.updated_at
FROM sessions_students ss
LEFT JOIN students st ON st.id = ss.student_id`

const sessionStaffSelect = `SELECT sf.id, sf.session_id, sf.staff_id, CONCAT_WS(' ', p.first_name, p.last_name) AS staff_name, sf.type, sf.planned_absence, sf.is_swapped, sf.swapped_session_staff_id, sf.created_by, sf.created_at, sf.updated_at
FROM sessions_staff sf
LEFT JOIN staff p ON p.id = sf.staff_id`

const insertSessionStudentQuery = `INSERT INTO sessions_students (id, session_id, student_id, planned_absence, is_rescheduled, rescheduled_session_student_id, is_credited, created_by, created_at, updated_at)
VALUES (:id, :session_id, :student_id, :planned_absence, :is_rescheduled, :rescheduled_session_student_id, :is_credited, :created_by, :created_at, :updated_at)`

const insertSessionStaffQuery = `INSERT INTO sessions_staff (id, session_id, staff_id, type, planned_absence, is_swapped, swapped_session_staff_id, created_by, created_at, updated_at)
VALUES (:id, :session_id, :staff_id, :type, :planned_absence, :is_swapped, :swapped_session_staff_id, :created_by, :created_at, :updated_at)`

const updateSessionStudentPlanQuery = `UPDATE sessions_students SET planned_absence = :planned_absence, is_rescheduled = :is_rescheduled, rescheduled_session_student_id = :rescheduled_session_student_id, is_credited = :is_credited, updated_at = :updated_at WHERE id = :id`

const updateSessionStaffPlanQuery = `UPDATE sessions_staff SET planned_absence = :planned_absence, is_swapped = :is_swapped, swapped_session_staff_id = :swapped_session_staff_id, updated_at = :updated_at WHERE id = :id`

// ParticipantRepository persists the planned roster of sessions (sessions_students, sessions_staff).
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs the repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// ListStudents returns the planned student roster of a session.
func (r *ParticipantRepository) ListStudents(ctx context.Context, sessionID string) ([]models.SessionStudent, error) {
	query := sessionStudentSelect + ` WHERE ss.session_id = $1 ORDER BY student_name ASC`
	var rows []models.SessionStudent
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session students: %w", err)
	}
	return rows, nil
}

// ListStaff returns the planned staff roster of a session.
func (r *ParticipantRepository) ListStaff(ctx context.Context, sessionID string) ([]models.SessionStaff, error) {
	query := sessionStaffSelect + ` WHERE sf.session_id = $1 ORDER BY sf.type ASC, staff_name ASC`
	var rows []models.SessionStaff
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session staff: %w", err)
	}
	return rows, nil
}

// FindStudentByID returns a student roster row.
func (r *ParticipantRepository) FindStudentByID(ctx context.Context, id string) (*models.SessionStudent, error) {
	var row models.SessionStudent
	if err := r.db.GetContext(ctx, &row, sessionStudentSelect+` WHERE ss.id = $1`, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindStaffByID returns a staff roster row.
func (r *ParticipantRepository) FindStaffByID(ctx context.Context, id string) (*models.SessionStaff, error) {
	var row models.SessionStaff
	if err := r.db.GetContext(ctx, &row, sessionStaffSelect+` WHERE sf.id = $1`, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindStudent returns the roster row of a student on a session.
func (r *ParticipantRepository) FindStudent(ctx context.Context, sessionID, studentID string) (*models.SessionStudent, error) {
	var row models.SessionStudent
	if err := r.db.GetContext(ctx, &row, sessionStudentSelect+` WHERE ss.session_id = $1 AND ss.student_id = $2`, sessionID, studentID); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindStaff returns the roster row of a staff member on a session.
func (r *ParticipantRepository) FindStaff(ctx context.Context, sessionID, staffID string) (*models.SessionStaff, error) {
	var row models.SessionStaff
	if err := r.db.GetContext(ctx, &row, sessionStaffSelect+` WHERE sf.session_id = $1 AND sf.staff_id = $2`, sessionID, staffID); err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateStudent adds a student to the planned roster.
func (r *ParticipantRepository) CreateStudent(ctx context.Context, row *models.SessionStudent) error {
	stampStudent(row, row.CreatedBy)
	if _, err := r.db.NamedExecContext(ctx, insertSessionStudentQuery, row); err != nil {
		return fmt.Errorf("create session student: %w", err)
	}
	return nil
}

// CreateStaff adds a staff member to the planned roster.
func (r *ParticipantRepository) CreateStaff(ctx context.Context, row *models.SessionStaff) error {
	stampStaff(row, row.CreatedBy)
	if _, err := r.db.NamedExecContext(ctx, insertSessionStaffQuery, row); err != nil {
		return fmt.Errorf("create session staff: %w", err)
	}
	return nil
}

// ApplyStudentPlan updates a student's plan and, when makeup has no ID yet, inserts the makeup
// row on the target session first, all in one transaction.
func (r *ParticipantRepository) ApplyStudentPlan(ctx context.Context, row *models.SessionStudent, makeup *models.SessionStudent) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student plan transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if makeup != nil && makeup.ID == "" {
		stampStudent(makeup, makeup.CreatedBy)
		if _, err = sqlx.NamedExecContext(ctx, tx, insertSessionStudentQuery, makeup); err != nil {
			return fmt.Errorf("insert makeup session student: %w", err)
		}
	}
	if makeup != nil {
		row.RescheduledSessionStudentID = &makeup.ID
	}

	row.UpdatedAt = time.Now().UTC()
	if _, err = sqlx.NamedExecContext(ctx, tx, updateSessionStudentPlanQuery, row); err != nil {
		return fmt.Errorf("update session student plan: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student plan: %w", err)
	}
	return nil
}

// ApplyStaffPlan updates a staff member's plan and, when replacement has no ID yet, inserts the
// replacement row on the same session first.
func (r *ParticipantRepository) ApplyStaffPlan(ctx context.Context, row *models.SessionStaff, replacement *models.SessionStaff) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff plan transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if replacement != nil && replacement.ID == "" {
		stampStaff(replacement, replacement.CreatedBy)
		if _, err = sqlx.NamedExecContext(ctx, tx, insertSessionStaffQuery, replacement); err != nil {
			return fmt.Errorf("insert replacement session staff: %w", err)
		}
	}
	if replacement != nil {
		row.SwappedSessionStaffID = &replacement.ID
	}

	row.UpdatedAt = time.Now().UTC()
	if _, err = sqlx.NamedExecContext(ctx, tx, updateSessionStaffPlanQuery, row); err != nil {
		return fmt.Errorf("update session staff plan: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit staff plan: %w", err)
	}
	return nil
}

// DeleteStudent removes a student from the planned roster and reports whether a row existed.
func (r *ParticipantRepository) DeleteStudent(ctx context.Context, sessionID, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions_students WHERE session_id = $1 AND student_id = $2`, sessionID, studentID)
	if err != nil {
		return false, fmt.Errorf("delete session student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session student rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteStaff removes a staff member from the planned roster.
func (r *ParticipantRepository) DeleteStaff(ctx context.Context, sessionID, staffID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions_staff WHERE session_id = $1 AND staff_id = $2`, sessionID, staffID)
	if err != nil {
		return false, fmt.Errorf("delete session staff: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session staff rows: %w", err)
	}
	return affected > 0, nil
}

func stampStudent(row *models.SessionStudent, createdBy *string) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	row.CreatedBy = createdBy
}

func stampStaff(row *models.SessionStaff, createdBy *string) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Type == "" {
		row.Type = models.StaffRoleMainTutor
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	row.CreatedBy = createdBy
}
