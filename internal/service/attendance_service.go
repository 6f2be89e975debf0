package service

import (
	"context"
	"strings"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/dto"
	"github.com/prohmpiriya/greenloop-event-service/internal/metrics"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	"github.com/prohmpiriya/greenloop-event-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// attendanceService implements AttendanceService
type attendanceService struct {
	eventRepo    repository.EventRepository
	attendeeRepo repository.AttendeeRepository
	publisher    EventPublisher
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	eventRepo repository.EventRepository,
	attendeeRepo repository.AttendeeRepository,
	publisher EventPublisher,
) AttendanceService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &attendanceService{
		eventRepo:    eventRepo,
		attendeeRepo: attendeeRepo,
		publisher:    publisher,
	}
}

// MarkAttendance resolves the QR token and marks the caller as attended
func (s *attendanceService) MarkAttendance(ctx context.Context, caller domain.Caller, qrToken string) (*domain.Attendee, *domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendance.mark")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", caller.UserID))

	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return nil, nil, domain.ErrMissingQRToken
	}

	event, err := s.eventRepo.GetByQRToken(ctx, qrToken)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, s.reject(ctx, domain.ErrEventNotFound)
	}
	span.SetAttributes(attribute.String("event_id", event.ID))

	return s.mark(ctx, event, caller.UserID, caller.Email)
}

// MarkAttendanceByEvent marks a user on an event the admin selected. The
// token must belong to that event.
func (s *attendanceService) MarkAttendanceByEvent(ctx context.Context, caller domain.Caller, eventID string, req *dto.AdminScanRequest) (*domain.Attendee, *domain.Event, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(req.QRToken) == "" {
		return nil, nil, domain.ErrMissingQRToken
	}
	if req.UserID == "" {
		return nil, nil, domain.ErrInvalidUserID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, domain.ErrEventNotFound
	}
	if event.QRToken != strings.TrimSpace(req.QRToken) {
		return nil, nil, s.reject(ctx, domain.ErrInvalidQRToken)
	}

	return s.mark(ctx, event, req.UserID, req.Email)
}

// mark applies the status gate, the registration check and the conditional
// write, then queues the reward and the notification. email is used for the
// notification when the registration has none.
func (s *attendanceService) mark(ctx context.Context, event *domain.Event, userID, email string) (*domain.Attendee, *domain.Event, error) {
	if err := domain.AcceptsAttendance(event.Status); err != nil {
		return nil, nil, s.reject(ctx, err)
	}

	attendee, err := s.attendeeRepo.Get(ctx, event.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	if attendee == nil {
		return nil, nil, s.reject(ctx, domain.ErrAttendeeNotRegistered)
	}
	if attendee.Attended {
		return nil, nil, s.reject(ctx, domain.ErrAttendanceAlreadyMarked)
	}

	now := time.Now()
	changed, err := s.attendeeRepo.MarkAttended(ctx, event.ID, userID, now)
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		// Lost the race against a concurrent scan
		return nil, nil, s.reject(ctx, domain.ErrAttendanceAlreadyMarked)
	}

	attendee.Attended = true
	attendee.AttendedAt = &now
	if attendee.UserEmail == "" {
		attendee.UserEmail = email
	}
	metrics.AttendanceMarked.Inc(ctx)

	log := logger.Get().With(zap.String("event_id", event.ID), zap.String("user_id", userID))
	log.Info("attendance marked", zap.Int("coins", event.Coins))

	if err := s.publisher.PublishParticipation(ctx, domain.NewParticipationMessage(event, attendee, now)); err != nil {
		log.Warn("participation message not queued", zap.Error(err))
	}
	if attendee.UserEmail != "" {
		if err := s.publisher.PublishNotification(ctx, domain.NewAttendanceNotification(event, attendee, now)); err != nil {
			log.Warn("attendance notification not queued", zap.Error(err))
		}
	}

	return attendee, event, nil
}

func (s *attendanceService) reject(ctx context.Context, err error) error {
	_, code, _ := domain.Classify(err)
	metrics.RecordRejection(ctx, metrics.AttendanceRejected, code)
	return err
}
