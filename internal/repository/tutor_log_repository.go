package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/altitutor/admin-api/internal/models"
)

// TutorLogRepository persists tutor logs together with attendance, topics, files and notes.
type TutorLogRepository struct {
	db *sqlx.DB
}

// NewTutorLogRepository constructs the repository.
func NewTutorLogRepository(db *sqlx.DB) *TutorLogRepository {
	return &TutorLogRepository{db: db}
}

// FindBySession returns the tutor log of a session.
func (r *TutorLogRepository) FindBySession(ctx context.Context, sessionID string) (*models.TutorLog, error) {
	const query = `SELECT id, session_id, created_by, created_at FROM tutor_logs WHERE session_id = $1`
	var log models.TutorLog
	if err := r.db.GetContext(ctx, &log, query, sessionID); err != nil {
		return nil, err
	}
	return &log, nil
}

// ListStudentAttendance returns student attendance rows of a log.
func (r *TutorLogRepository) ListStudentAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStudentAttendance, error) {
	const query = `SELECT a.id, a.tutor_log_id, a.student_id, CONCAT_WS(' ', st.first_name, st.last_name) AS student_name, a.attended
FROM tutor_logs_student_attendance a
LEFT JOIN students st ON st.id = a.student_id
WHERE a.tutor_log_id = $1
ORDER BY student_name ASC`
	var rows []models.TutorLogStudentAttendance
	if err := r.db.SelectContext(ctx, &rows, query, tutorLogID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}

// ListStaffAttendance returns staff attendance rows of a log.
func (r *TutorLogRepository) ListStaffAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStaffAttendance, error) {
	const query = `SELECT a.id, a.tutor_log_id, a.staff_id, CONCAT_WS(' ', sf.first_name, sf.last_name) AS staff_name, a.attended, a.type
FROM tutor_logs_staff_attendance a
LEFT JOIN staff sf ON sf.id = a.staff_id
WHERE a.tutor_log_id = $1
ORDER BY staff_name ASC`
	var rows []models.TutorLogStaffAttendance
	if err := r.db.SelectContext(ctx, &rows, query, tutorLogID); err != nil {
		return nil, fmt.Errorf("list staff attendance: %w", err)
	}
	return rows, nil
}

type topicRow struct {
	ID         string         `db:"id"`
	TutorLogID string         `db:"tutor_log_id"`
	RefID      string         `db:"ref_id"`
	StudentIDs pq.StringArray `db:"student_ids"`
}

// ListTopics returns topics covered in a log with the students each applied to.
func (r *TutorLogRepository) ListTopics(ctx context.Context, tutorLogID string) ([]models.TutorLogTopic, error) {
	const query = `SELECT t.id, t.tutor_log_id, t.topic_id AS ref_id,
COALESCE(array_agg(ts.student_id) FILTER (WHERE ts.student_id IS NOT NULL), '{}') AS student_ids
FROM tutor_logs_topics t
LEFT JOIN tutor_logs_topics_students ts ON ts.tutor_logs_topics_id = t.id
WHERE t.tutor_log_id = $1
GROUP BY t.id, t.tutor_log_id, t.topic_id`
	var rows []topicRow
	if err := r.db.SelectContext(ctx, &rows, query, tutorLogID); err != nil {
		return nil, fmt.Errorf("list tutor log topics: %w", err)
	}
	topics := make([]models.TutorLogTopic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, models.TutorLogTopic{ID: row.ID, TutorLogID: row.TutorLogID, TopicID: row.RefID, StudentIDs: []string(row.StudentIDs)})
	}
	return topics, nil
}

// ListTopicFiles returns files used in a log with the students who worked on each.
func (r *TutorLogRepository) ListTopicFiles(ctx context.Context, tutorLogID string) ([]models.TutorLogTopicFile, error) {
	const query = `SELECT f.id, f.tutor_log_id, f.topics_files_id AS ref_id,
COALESCE(array_agg(fs.student_id) FILTER (WHERE fs.student_id IS NOT NULL), '{}') AS student_ids
FROM tutor_logs_topics_files f
LEFT JOIN tutor_logs_topics_files_students fs ON fs.tutor_logs_topics_files_id = f.id
WHERE f.tutor_log_id = $1
GROUP BY f.id, f.tutor_log_id, f.topics_files_id`
	var rows []topicRow
	if err := r.db.SelectContext(ctx, &rows, query, tutorLogID); err != nil {
		return nil, fmt.Errorf("list tutor log files: %w", err)
	}
	files := make([]models.TutorLogTopicFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, models.TutorLogTopicFile{ID: row.ID, TutorLogID: row.TutorLogID, TopicFileID: row.RefID, StudentIDs: []string(row.StudentIDs)})
	}
	return files, nil
}

// ListNotes returns notes attached to a log, oldest first.
func (r *TutorLogRepository) ListNotes(ctx context.Context, tutorLogID string) ([]models.Note, error) {
	const query = `SELECT id, target_type, target_id, note, created_by, created_at FROM notes WHERE target_type = $1 AND target_id = $2 ORDER BY created_at ASC`
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, models.NoteTargetTutorLog, tutorLogID); err != nil {
		return nil, fmt.Errorf("list tutor log notes: %w", err)
	}
	return notes, nil
}

// Create writes the log and every sub-row in one transaction. A second log for the same session
// fails on the session_id unique constraint.
func (r *TutorLogRepository) Create(ctx context.Context, detail *models.TutorLogDetail) (err error) {
	now := time.Now().UTC()
	if detail.ID == "" {
		detail.ID = uuid.NewString()
	}
	detail.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tutor log transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO tutor_logs (id, session_id, created_by, created_at) VALUES (:id, :session_id, :created_by, :created_at)`, &detail.TutorLog); err != nil {
		return fmt.Errorf("insert tutor log: %w", err)
	}

	for i := range detail.StudentAttendance {
		row := &detail.StudentAttendance[i]
		row.ID = uuid.NewString()
		row.TutorLogID = detail.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO tutor_logs_student_attendance (id, tutor_log_id, student_id, attended) VALUES (:id, :tutor_log_id, :student_id, :attended)`, row); err != nil {
			return fmt.Errorf("insert student attendance: %w", err)
		}
	}
	for i := range detail.StaffAttendance {
		row := &detail.StaffAttendance[i]
		row.ID = uuid.NewString()
		row.TutorLogID = detail.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO tutor_logs_staff_attendance (id, tutor_log_id, staff_id, attended, type) VALUES (:id, :tutor_log_id, :staff_id, :attended, :type)`, row); err != nil {
			return fmt.Errorf("insert staff attendance: %w", err)
		}
	}

	for i := range detail.Topics {
		topic := &detail.Topics[i]
		topic.ID = uuid.NewString()
		topic.TutorLogID = detail.ID
		if _, err = tx.ExecContext(ctx, `INSERT INTO tutor_logs_topics (id, tutor_log_id, topic_id) VALUES ($1, $2, $3)`, topic.ID, topic.TutorLogID, topic.TopicID); err != nil {
			return fmt.Errorf("insert tutor log topic: %w", err)
		}
		if err = insertLinkedStudents(ctx, tx, "tutor_logs_topics_students", "tutor_logs_topics_id", topic.ID, topic.StudentIDs); err != nil {
			return err
		}
	}
	for i := range detail.TopicFiles {
		file := &detail.TopicFiles[i]
		file.ID = uuid.NewString()
		file.TutorLogID = detail.ID
		if _, err = tx.ExecContext(ctx, `INSERT INTO tutor_logs_topics_files (id, tutor_log_id, topics_files_id) VALUES ($1, $2, $3)`, file.ID, file.TutorLogID, file.TopicFileID); err != nil {
			return fmt.Errorf("insert tutor log file: %w", err)
		}
		if err = insertLinkedStudents(ctx, tx, "tutor_logs_topics_files_students", "tutor_logs_topics_files_id", file.ID, file.StudentIDs); err != nil {
			return err
		}
	}

	for i := range detail.Notes {
		note := &detail.Notes[i]
		note.ID = uuid.NewString()
		note.TargetType = models.NoteTargetTutorLog
		note.TargetID = detail.ID
		note.CreatedBy = detail.CreatedBy
		note.CreatedAt = now
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO notes (id, target_type, target_id, note, created_by, created_at) VALUES (:id, :target_type, :target_id, :note, :created_by, :created_at)`, note); err != nil {
			return fmt.Errorf("insert tutor log note: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tutor log: %w", err)
	}
	return nil
}

// insertLinkedStudents bulk-inserts link rows with unnest over a text array.
func insertLinkedStudents(ctx context.Context, tx *sqlx.Tx, table, parentColumn, parentID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	ids := make([]string, len(studentIDs))
	for i := range studentIDs {
		ids[i] = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, student_id) SELECT ids.id, $1, ids.student_id FROM unnest($2::text[], $3::text[]) AS ids(id, student_id)`, table, parentColumn)
	if _, err := tx.ExecContext(ctx, query, parentID, pq.Array(ids), pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}
