package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	StartCodeTTL    = 15 * time.Minute
	startCodeDigits = 6
)

// Названия переходов для метрик и логов
const (
	TransitionConfirm      = "confirm"
	TransitionGenerateCode = "generate_code"
	TransitionVerifyCode   = "verify_code"
	TransitionEnd          = "end"
	TransitionComplete     = "complete"
	TransitionCancel       = "cancel"
)

type SessionService struct {
	stores   Stores
	progress *ProgressService
	notify   dispatcher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
	newCode  func() (string, error)
}

func NewSessionService(
	stores Stores,
	progress *ProgressService,
	notifier Notifier,
	m *metrics.Metrics,
	loc *time.Location,
	logger *zap.Logger,
) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		stores:   stores,
		progress: progress,
		notify:   dispatcher{sink: notifier, metrics: m, logger: logger},
		metrics:  m,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
		newCode:  randomStartCode,
	}
}

// ConfirmSession подтверждает заявку. Только учитель, только из requested.
func (s *SessionService) ConfirmSession(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, changed, err := s.transition(ctx, TransitionConfirm, sessionID, actorID,
		func(session *model.Session, now time.Time) (bool, error) {
			if session.TeacherID != actorID {
				return false, forbidden("only the teacher can confirm a session")
			}
			if session.Status != model.SessionStatusRequested {
				return false, conflictf("cannot confirm a %s session", session.Status)
			}
			if !session.ScheduledStart.After(now) {
				return false, conflictf("session start has already passed")
			}
			session.Status = model.SessionStatusConfirmed
			return true, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify.send(ctx, session.StudentID, "Session confirmed",
			fmt.Sprintf("Your session on %s was confirmed.", s.formatTime(session.ScheduledStart)))
	}
	return session, nil
}

// GenerateStartCode выдаёт новый код старта, заменяя предыдущий.
// Код доступен в поле StartCode возвращённой сессии.
func (s *SessionService) GenerateStartCode(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, _, err := s.transition(ctx, TransitionGenerateCode, sessionID, actorID,
		func(session *model.Session, now time.Time) (bool, error) {
			if session.TeacherID != actorID {
				return false, forbidden("only the teacher can issue a start code")
			}
			if session.Status != model.SessionStatusConfirmed && session.Status != model.SessionStatusInProgress {
				return false, conflictf("cannot issue a start code for a %s session", session.Status)
			}

			code, err := s.newCode()
			if err != nil {
				return false, err
			}
			expiresAt := now.Add(StartCodeTTL)
			session.StartCode = &code
			session.CodeExpiresAt = &expiresAt
			return true, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// VerifyStartCode переводит сессию в in_progress по коду учителя.
// Повторная проверка верного кода ничего не меняет.
func (s *SessionService) VerifyStartCode(ctx context.Context, sessionID, actorID int64, code string) (*model.Session, error) {
	code = strings.TrimSpace(code)

	session, changed, err := s.transition(ctx, TransitionVerifyCode, sessionID, actorID,
		func(session *model.Session, now time.Time) (bool, error) {
			if session.StudentID != actorID {
				return false, forbidden("only the student can verify a start code")
			}
			if session.Status != model.SessionStatusConfirmed && session.Status != model.SessionStatusInProgress {
				return false, conflictf("cannot start a %s session", session.Status)
			}
			if session.StartCode == nil || session.CodeExpiresAt == nil {
				return false, conflictf("no start code has been issued")
			}
			if subtle.ConstantTimeCompare([]byte(*session.StartCode), []byte(code)) != 1 {
				return false, validationf("start code does not match")
			}
			if !session.HasValidCode(now) {
				return false, expired("start code has expired")
			}

			if session.Status == model.SessionStatusInProgress {
				return false, nil
			}

			session.Status = model.SessionStatusInProgress
			if session.ActualStart == nil {
				session.ActualStart = &now
			}
			return true, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify.send(ctx, session.TeacherID, "Session started",
			"Your student verified the start code, the session is in progress.")
	}
	return session, nil
}

// EndSession завершает идущую сессию и начисляет очки. Только учитель.
func (s *SessionService) EndSession(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, changed, err := s.transition(ctx, TransitionEnd, sessionID, actorID,
		func(session *model.Session, now time.Time) (bool, error) {
			if session.TeacherID != actorID {
				return false, forbidden("only the teacher can end a session")
			}
			if session.Status != model.SessionStatusInProgress {
				return false, conflictf("cannot end a %s session", session.Status)
			}
			session.Status = model.SessionStatusCompleted
			session.ActualEnd = &now
			clearStartCode(session)
			return true, nil
		}, s.awardPoints(CompletionEnded))
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify.send(ctx, session.StudentID, "Session completed",
			"The session has ended. Points were added to your progress, you can now rate your teacher.")
	}
	return session, nil
}

// CompleteSession отмечает подтверждённую сессию завершённой без кода старта.
// Доступно обоим участникам.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, changed, err := s.transition(ctx, TransitionComplete, sessionID, actorID,
		func(session *model.Session, _ time.Time) (bool, error) {
			if !session.IsParticipant(actorID) {
				return false, forbidden("only participants can complete a session")
			}
			if session.Status.IsTerminal() {
				return false, conflictf("session is already %s", session.Status)
			}
			if session.Status != model.SessionStatusConfirmed {
				return false, conflictf("cannot complete a %s session", session.Status)
			}
			session.Status = model.SessionStatusCompleted
			clearStartCode(session)
			return true, nil
		}, s.awardPoints(CompletionMarked))
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify.send(ctx, session.Counterpart(actorID), "Session completed",
			"The session was marked as completed. Points were added to your progress.")
	}
	return session, nil
}

// CancelSession отменяет активную сессию. Доступно обоим участникам.
func (s *SessionService) CancelSession(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, changed, err := s.transition(ctx, TransitionCancel, sessionID, actorID,
		func(session *model.Session, _ time.Time) (bool, error) {
			if !session.IsParticipant(actorID) {
				return false, forbidden("only participants can cancel a session")
			}
			if session.Status.IsTerminal() {
				return false, conflictf("session is already %s", session.Status)
			}
			session.Status = model.SessionStatusCancelled
			clearStartCode(session)
			return true, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	if changed {
		s.notify.send(ctx, session.Counterpart(actorID), "Session cancelled",
			fmt.Sprintf("The session on %s was cancelled.", s.formatTime(session.ScheduledStart)))
	}
	return session, nil
}

// ExpireStale отменяет заявки и подтверждённые сессии, время начала которых прошло
func (s *SessionService) ExpireStale(ctx context.Context) (_ int64, err error) {
	ctx, span := startSpan(ctx, "SessionService.ExpireStale")
	defer func() { endSpan(span, err) }()

	n, err := s.stores.Sessions.CancelStale(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expire stale sessions: %w", err)
	}

	if n > 0 {
		s.metrics.SessionsExpired(n)
		s.logger.Info("Stale sessions cancelled", zap.Int64("count", n))
	}
	return n, nil
}

// ListSessions возвращает сессии пользователя, сгруппированные по роли.
// Перед чтением отменяет просроченные сессии; ошибка очистки не мешает чтению.
func (s *SessionService) ListSessions(ctx context.Context, userID int64) (_ *model.SessionList, err error) {
	ctx, span := startSpan(ctx, "SessionService.ListSessions", attribute.Int64("user_id", userID))
	defer func() { endSpan(span, err) }()

	if _, err := s.ExpireStale(ctx); err != nil {
		s.logger.Warn("Failed to expire stale sessions", zap.Error(err))
	}

	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user")
	}

	teaching, err := s.stores.Sessions.ListByTeacher(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list teaching sessions: %w", err)
	}

	learning, err := s.stores.Sessions.ListByStudent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list learning sessions: %w", err)
	}

	if teaching == nil {
		teaching = []*model.Session{}
	}
	if learning == nil {
		learning = []*model.Session{}
	}

	return &model.SessionList{Teaching: teaching, Learning: learning}, nil
}

// GetSession возвращает сессию её участнику
func (s *SessionService) GetSession(ctx context.Context, sessionID, actorID int64) (*model.Session, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, notFound("session")
	}
	if !session.IsParticipant(actorID) {
		return nil, forbidden("only participants can view a session")
	}
	return session, nil
}

// mutation проверяет права и текущий статус и изменяет сессию.
// false без ошибки означает, что переход уже выполнен и записывать нечего.
type mutation func(session *model.Session, now time.Time) (bool, error)

// transition применяет mutation в транзакции и сохраняет сессию с проверкой версии.
// afterWrite выполняется в той же транзакции только если сессия изменилась.
func (s *SessionService) transition(
	ctx context.Context,
	name string,
	sessionID, actorID int64,
	mutate mutation,
	afterWrite func(ctx context.Context, session *model.Session) error,
) (_ *model.Session, changed bool, err error) {
	ctx, span := startSpan(ctx, "SessionService."+name,
		attribute.Int64("session_id", sessionID), attribute.Int64("actor_id", actorID))
	defer func() {
		s.metrics.Transition(name, resultLabel(err))
		endSpan(span, err)
	}()

	var result *model.Session
	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		session, err := s.stores.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if session == nil {
			return notFound("session")
		}

		version := session.Version
		changed, err = mutate(session, s.now())
		if err != nil {
			return err
		}

		if changed {
			ok, err := s.stores.Sessions.Update(ctx, session, version)
			if err != nil {
				return fmt.Errorf("update session: %w", err)
			}
			if !ok {
				return ErrConcurrentUpdate
			}

			if afterWrite != nil {
				if err := afterWrite(ctx, session); err != nil {
					return err
				}
			}
		}

		result = session
		return nil
	})
	if err != nil {
		s.logger.Debug("Session transition rejected",
			zap.String("transition", name),
			zap.Int64("session_id", sessionID),
			zap.Int64("actor_id", actorID),
			zap.Error(err),
		)
		return nil, false, err
	}

	if changed {
		s.logger.Info("Session transition applied",
			zap.String("transition", name),
			zap.Int64("session_id", sessionID),
			zap.Int64("actor_id", actorID),
			zap.String("status", string(result.Status)),
		)
	}

	return result, changed, nil
}

func (s *SessionService) awardPoints(kind CompletionKind) func(ctx context.Context, session *model.Session) error {
	return func(ctx context.Context, session *model.Session) error {
		if _, err := s.progress.RecordCompletion(ctx, CompletionEvent{Kind: kind, Session: session}); err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
		return nil
	}
}

func (s *SessionService) formatTime(t time.Time) string {
	return t.In(s.loc).Format("Mon 02 Jan 15:04")
}

func clearStartCode(session *model.Session) {
	session.StartCode = nil
	session.CodeExpiresAt = nil
}

// randomStartCode возвращает шестизначный код из криптографического источника
func randomStartCode() (string, error) {
	limit := big.NewInt(1)
	for range startCodeDigits {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate start code: %w", err)
	}
	return fmt.Sprintf("%0*d", startCodeDigits, n.Int64()), nil
}
