package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	MinSessionDuration   = 15 * time.Minute
	MaxSessionDuration   = 4 * time.Hour
	QuickBookMaxDuration = time.Hour
	bookingHorizonMonths = 6
)

// BookingRequest запрос на бронирование сессии на конкретное время
type BookingRequest struct {
	TeacherID int64
	StudentID int64
	SkillID   int64
	Start     time.Time
	End       time.Time
}

// QuickBookResult результат быстрого бронирования. Если общих слотов нет,
// Session пустая, NoMatch выставлен, а Contact содержит способ связаться с учителем.
type QuickBookResult struct {
	Session *model.Session       `json:"session,omitempty"`
	NoMatch bool                 `json:"no_match"`
	Contact model.ContactChannel `json:"contact"`
}

type BookingService struct {
	stores  Stores
	notify  dispatcher
	metrics *metrics.Metrics
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewBookingService(stores Stores, notifier Notifier, m *metrics.Metrics, loc *time.Location, logger *zap.Logger) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		stores:  stores,
		notify:  dispatcher{sink: notifier, metrics: m, logger: logger},
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// RequestSession бронирует сессию на заданное время в статусе requested.
// Все проверки выполняются до записи под блокировками учителя и ученика.
func (s *BookingService) RequestSession(ctx context.Context, req BookingRequest) (_ *model.Session, err error) {
	ctx, span := startSpan(ctx, "BookingService.RequestSession",
		attribute.Int64("teacher_id", req.TeacherID),
		attribute.Int64("student_id", req.StudentID),
		attribute.Int64("skill_id", req.SkillID),
	)
	defer func() {
		s.metrics.Booking(resultLabel(err))
		endSpan(span, err)
	}()

	return s.request(ctx, req)
}

// QuickRequestSession бронирует первое общее окно учителя и ученика длиной не больше часа
func (s *BookingService) QuickRequestSession(ctx context.Context, teacherID, studentID, skillID int64) (_ *QuickBookResult, err error) {
	ctx, span := startSpan(ctx, "BookingService.QuickRequestSession",
		attribute.Int64("teacher_id", teacherID),
		attribute.Int64("student_id", studentID),
		attribute.Int64("skill_id", skillID),
	)
	result := "ok"
	defer func() {
		if err != nil {
			result = resultLabel(err)
		}
		s.metrics.Booking(result)
		endSpan(span, err)
	}()

	if teacherID == studentID {
		return nil, validationf("teacher and student must be different users")
	}

	teacher, err := s.stores.Users.GetByID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, notFound("teacher")
	}

	slots, err := s.stores.Availability.GetByUserIDs(ctx, []int64{teacherID, studentID})
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}

	window, ok := FirstOverlap(slots[teacherID], slots[studentID], MinSessionDuration)
	if !ok {
		result = "no_match"
		s.logger.Info("No common availability for quick booking",
			zap.Int64("teacher_id", teacherID),
			zap.Int64("student_id", studentID),
		)
		return &QuickBookResult{NoMatch: true, Contact: model.BestContact(teacher)}, nil
	}

	start := nextOccurrence(s.now().In(s.loc), time.Weekday(window.DayOfWeek), window.StartMinute)
	end := start.Add(min(window.Duration(), QuickBookMaxDuration))

	session, err := s.request(ctx, BookingRequest{
		TeacherID: teacherID,
		StudentID: studentID,
		SkillID:   skillID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, err
	}

	return &QuickBookResult{Session: session, Contact: model.ContactChannel{Kind: model.ContactKindNone}}, nil
}

func (s *BookingService) request(ctx context.Context, req BookingRequest) (*model.Session, error) {
	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.Int64("teacher_id", req.TeacherID),
		zap.Int64("student_id", req.StudentID),
	)

	if err := ValidateBooking(req, s.now()); err != nil {
		logger.Debug("Booking rejected", zap.Error(err))
		return nil, err
	}

	var session *model.Session
	var skill *model.Skill

	// Блокировки по обоим участникам: учитель не может получить две пересекающиеся
	// заявки, а ученик не может одновременно забронировать двух учителей на одно время
	err := s.stores.Tx.WithinLockedTx(ctx, []int64{req.TeacherID, req.StudentID}, func(ctx context.Context) error {
		var err error
		skill, err = s.checkBooking(ctx, req)
		if err != nil {
			return err
		}

		session = &model.Session{
			TeacherID:      req.TeacherID,
			StudentID:      req.StudentID,
			SkillID:        req.SkillID,
			ScheduledStart: req.Start,
			ScheduledEnd:   req.End,
			Status:         model.SessionStatusRequested,
		}
		if err := s.stores.Sessions.Create(ctx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Debug("Booking rejected", zap.Error(err))
		return nil, err
	}

	logger.Info("Session requested",
		zap.Int64("session_id", session.ID),
		zap.Int64("skill_id", req.SkillID),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
	)

	s.notify.send(ctx, req.TeacherID, "New session request",
		fmt.Sprintf("A student asked for a %s session on %s.",
			skill.Name, req.Start.In(s.loc).Format("Mon 02 Jan 15:04")))

	return session, nil
}

// checkBooking выполняет проверки, требующие чтения из хранилища, в порядке:
// учитель, ученик, навык, доступность учителя, занятость учителя, занятость ученика
func (s *BookingService) checkBooking(ctx context.Context, req BookingRequest) (*model.Skill, error) {
	teacher, err := s.stores.Users.GetByID(ctx, req.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, notFound("teacher")
	}

	student, err := s.stores.Users.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, notFound("student")
	}

	skill, err := s.stores.Skills.GetByID(ctx, req.SkillID)
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	if skill == nil {
		return nil, notFound("skill")
	}

	slots, err := s.stores.Availability.GetByUserID(ctx, req.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher availability: %w", err)
	}
	if !slotsCover(slots, req.Start, req.End, s.loc) {
		return nil, ErrTeacherUnavailable
	}

	teacherSessions, err := s.stores.Sessions.ActiveForTeacher(ctx, req.TeacherID, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("get teacher sessions: %w", err)
	}
	if anyConflict(teacherSessions, req.Start, req.End) {
		return nil, ErrTeacherBusy
	}

	requesterSessions, err := s.stores.Sessions.ActiveForParticipant(ctx, req.StudentID, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("get requester sessions: %w", err)
	}
	if anyConflict(requesterSessions, req.Start, req.End) {
		return nil, ErrRequesterBusy
	}

	return skill, nil
}

// ValidateBooking проверяет запрос без обращения к хранилищу
func ValidateBooking(req BookingRequest, now time.Time) error {
	if req.TeacherID == req.StudentID {
		return validationf("teacher and student must be different users")
	}
	if !req.End.After(req.Start) {
		return validationf("end must be after start")
	}
	if !req.Start.After(now) {
		return validationf("start must be in the future")
	}

	duration := req.End.Sub(req.Start)
	if duration < MinSessionDuration || duration > MaxSessionDuration {
		return validationf("duration must be between %s and %s", MinSessionDuration, MaxSessionDuration)
	}

	if req.Start.After(now.AddDate(0, bookingHorizonMonths, 0)) {
		return validationf("start must be within %d months", bookingHorizonMonths)
	}

	return nil
}

func anyConflict(sessions []*model.Session, start, end time.Time) bool {
	for _, existing := range sessions {
		if !existing.Status.IsActive() {
			continue
		}
		if IntervalsConflict(existing.ScheduledStart, existing.ScheduledEnd, start, end) {
			return true
		}
	}
	return false
}
