package repository

import (
	"context"

	"github.com/altitutor/admin-api/internal/models"
)

// ReconciliationStore is the read-only view the reconciliation engine needs, assembled from the
// session, class, roster and tutor log repositories.
type ReconciliationStore struct {
	sessions     *SessionRepository
	classes      *ClassRepository
	participants *ParticipantRepository
	tutorLogs    *TutorLogRepository
}

// NewReconciliationStore composes the store.
func NewReconciliationStore(sessions *SessionRepository, classes *ClassRepository, participants *ParticipantRepository, tutorLogs *TutorLogRepository) *ReconciliationStore {
	return &ReconciliationStore{sessions: sessions, classes: classes, participants: participants, tutorLogs: tutorLogs}
}

func (s *ReconciliationStore) FindSession(ctx context.Context, id string) (*models.Session, error) {
	return s.sessions.FindByID(ctx, id)
}

func (s *ReconciliationStore) FindClass(ctx context.Context, id string) (*models.Class, error) {
	return s.classes.FindByID(ctx, id)
}

func (s *ReconciliationStore) ListStudents(ctx context.Context, sessionID string) ([]models.SessionStudent, error) {
	return s.participants.ListStudents(ctx, sessionID)
}

func (s *ReconciliationStore) ListStaff(ctx context.Context, sessionID string) ([]models.SessionStaff, error) {
	return s.participants.ListStaff(ctx, sessionID)
}

func (s *ReconciliationStore) FindStudentParticipant(ctx context.Context, id string) (*models.SessionStudent, error) {
	return s.participants.FindStudentByID(ctx, id)
}

func (s *ReconciliationStore) FindStaffParticipant(ctx context.Context, id string) (*models.SessionStaff, error) {
	return s.participants.FindStaffByID(ctx, id)
}

func (s *ReconciliationStore) FindTutorLog(ctx context.Context, sessionID string) (*models.TutorLog, error) {
	return s.tutorLogs.FindBySession(ctx, sessionID)
}

func (s *ReconciliationStore) ListStudentAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStudentAttendance, error) {
	return s.tutorLogs.ListStudentAttendance(ctx, tutorLogID)
}

func (s *ReconciliationStore) ListStaffAttendance(ctx context.Context, tutorLogID string) ([]models.TutorLogStaffAttendance, error) {
	return s.tutorLogs.ListStaffAttendance(ctx, tutorLogID)
}
