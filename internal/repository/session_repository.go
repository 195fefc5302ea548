package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/altitutor/admin-api/internal/models"
)

const sessionColumns = `id, class_id, subject_id, type, session_date, start_at, end_at, notes, created_by, created_at, updated_at`

// SessionRepository manages persistence for dated sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions overlapping the filter window ordered chronologically.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	var conditions []string
	var args []interface{}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM sessions%s ORDER BY start_at ASC LIMIT %d OFFSET %d", sessionColumns, clause, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists an ad-hoc session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	stampSession(session)
	if _, err := sqlx.NamedExecContext(ctx, r.db, insertSessionQuery, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

const insertSessionQuery = `INSERT INTO sessions (id, class_id, subject_id, type, session_date, start_at, end_at, notes, created_by, created_at, updated_at)
VALUES (:id, :class_id, :subject_id, :type, :session_date, :start_at, :end_at, :notes, :created_by, :created_at, :updated_at)`

// Update modifies a session. The class reference is never changed.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET subject_id = :subject_id, type = :type, session_date = :session_date, start_at = :start_at, end_at = :end_at, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Delete removes a session; roster rows and the tutor log cascade. A reschedule link from another
// session into this one fails with a foreign key violation.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateMaterialized inserts a class-generated session together with its initial roster in one
// transaction. When a session for the same (class_id, session_date) already exists nothing is
// written and created is false.
func (r *SessionRepository) CreateMaterialized(ctx context.Context, session *models.Session, students []models.SessionStudent, staff []models.SessionStaff) (created bool, err error) {
	stampSession(session)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin materialize transaction: %w", err)
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO sessions (id, class_id, subject_id, type, session_date, start_at, end_at, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (class_id, session_date) DO NOTHING
RETURNING id`
	var id string
	err = tx.QueryRowxContext(ctx, insertQuery,
		session.ID, session.ClassID, session.SubjectID, session.Type, session.SessionDate,
		session.StartAt, session.EndAt, session.Notes, session.CreatedBy, session.CreatedAt, session.UpdatedAt,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert materialized session: %w", err)
	}

	for i := range students {
		students[i].SessionID = id
		stampStudent(&students[i], session.CreatedBy)
		if _, err = sqlx.NamedExecContext(ctx, tx, insertSessionStudentQuery, &students[i]); err != nil {
			return false, fmt.Errorf("insert session student: %w", err)
		}
	}
	for i := range staff {
		staff[i].SessionID = id
		stampStaff(&staff[i], session.CreatedBy)
		if _, err = sqlx.NamedExecContext(ctx, tx, insertSessionStaffQuery, &staff[i]); err != nil {
			return false, fmt.Errorf("insert session staff: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit materialized session: %w", err)
	}
	created = true
	return created, nil
}

// ListUnloggedForStaff returns CLASS sessions the staff member is rostered on that have no tutor
// log yet and have already started, most recent first.
func (r *SessionRepository) ListUnloggedForStaff(ctx context.Context, staffID string, before time.Time) ([]models.Session, error) {
	const query = `SELECT s.id, s.class_id, s.subject_id, s.type, s.session_date, s.start_at, s.end_at, s.notes, s.created_by, s.created_at, s.updated_at
FROM sessions s
JOIN sessions_staff ss ON ss.session_id = s.id
LEFT JOIN tutor_logs tl ON tl.session_id = s.id
WHERE ss.staff_id = $1 AND s.type = $2 AND tl.id IS NULL AND s.start_at <= $3
ORDER BY s.start_at DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, staffID, models.SessionTypeClass, before); err != nil {
		return nil, fmt.Errorf("list unlogged sessions: %w", err)
	}
	return sessions, nil
}

func stampSession(session *models.Session) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
}
