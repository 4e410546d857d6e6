package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// memDB хранит состояние всех фейковых репозиториев
type memDB struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*model.User
	skills   map[int64]*model.Skill
	slots    map[int64][]model.AvailabilitySlot
	sessions map[int64]*model.Session
	ratings  []*model.Rating
	progress []*model.ProgressEntry

	candidateQueries []candidateQuery
	lockedKeys       [][]int64
}

// candidateQuery аргументы, с которыми сервис запросил кандидатов
type candidateQuery struct {
	UserID   int64
	TeachIDs []int64
	LearnIDs []int64
}

func newMemDB() *memDB {
	return &memDB{
		users:    make(map[int64]*model.User),
		skills:   make(map[int64]*model.Skill),
		slots:    make(map[int64][]model.AvailabilitySlot),
		sessions: make(map[int64]*model.Session),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) stores() Stores {
	return Stores{
		Users:        fakeUsers{db},
		Skills:       fakeSkills{db},
		Availability: fakeAvailability{db},
		Sessions:     fakeSessions{db},
		Ratings:      fakeRatings{db},
		Progress:     fakeProgress{db},
		Tx:           &fakeTx{db: db},
	}
}

func (db *memDB) addUser(u model.User) *model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == 0 {
		u.ID = db.id()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	db.users[u.ID] = &u
	return &u
}

func (db *memDB) addSkill(name string) *model.Skill {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := &model.Skill{ID: db.id(), Name: name}
	db.skills[s.ID] = s
	return s
}

func (db *memDB) setSlots(userID int64, slots ...model.AvailabilitySlot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := range slots {
		slots[i].UserID = userID
	}
	db.slots[userID] = slots
}

func (db *memDB) addSession(s model.Session) *model.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	s.ID = db.id()
	if s.Version == 0 {
		s.Version = 1
	}
	db.sessions[s.ID] = &s
	c := s
	return &c
}

func (db *memDB) session(id int64) model.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.sessions[id]
}

func (db *memDB) progressFor(sessionID int64) []model.ProgressEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.ProgressEntry
	for _, e := range db.progress {
		if e.SessionID == sessionID {
			out = append(out, *e)
		}
	}
	return out
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.Skills = append([]model.SkillAssociation(nil), u.Skills...)
	return &c
}

type fakeUsers struct{ db *memDB }

func (f fakeUsers) Create(_ context.Context, user *model.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	user.ID = f.db.id()
	f.db.users[user.ID] = copyUser(user)
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (f fakeUsers) Update(_ context.Context, user *model.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	f.db.users[user.ID] = copyUser(user)
	return nil
}

// FindCandidates возвращает всех остальных пользователей: фильтрация проверяется на стороне сервиса.
// Аргументы запоминаются для проверки.
func (f fakeUsers) FindCandidates(_ context.Context, userID int64, teachIDs, learnIDs []int64) ([]*model.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.candidateQueries = append(f.db.candidateQueries, candidateQuery{
		UserID:   userID,
		TeachIDs: slices.Clone(teachIDs),
		LearnIDs: slices.Clone(learnIDs),
	})
	var out []*model.User
	for id, u := range f.db.users {
		if id != userID {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

type fakeSkills struct{ db *memDB }

func (f fakeSkills) Create(_ context.Context, skill *model.Skill) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.skills {
		if strings.EqualFold(s.Name, skill.Name) {
			return false, nil
		}
	}
	skill.ID = f.db.id()
	c := *skill
	f.db.skills[skill.ID] = &c
	return true, nil
}

func (f fakeSkills) GetByID(_ context.Context, id int64) (*model.Skill, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.skills[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (f fakeSkills) GetByName(_ context.Context, name string) (*model.Skill, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.skills {
		if strings.EqualFold(s.Name, name) {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (f fakeSkills) UpsertAssociation(_ context.Context, a model.SkillAssociation) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[a.UserID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	for i, existing := range u.Skills {
		if existing.SkillID == a.SkillID && existing.Kind == a.Kind {
			u.Skills[i] = a
			return nil
		}
	}
	u.Skills = append(u.Skills, a)
	return nil
}

func (f fakeSkills) DeleteAssociation(_ context.Context, userID, skillID int64, kind model.SkillKind) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[userID]
	if !ok {
		return false, nil
	}
	for i, existing := range u.Skills {
		if existing.SkillID == skillID && existing.Kind == kind {
			u.Skills = append(u.Skills[:i], u.Skills[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeAvailability struct{ db *memDB }

func (f fakeAvailability) GetByUserID(_ context.Context, userID int64) ([]model.AvailabilitySlot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]model.AvailabilitySlot(nil), f.db.slots[userID]...), nil
}

func (f fakeAvailability) GetByUserIDs(_ context.Context, userIDs []int64) (map[int64][]model.AvailabilitySlot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make(map[int64][]model.AvailabilitySlot, len(userIDs))
	for _, id := range userIDs {
		if slots, ok := f.db.slots[id]; ok {
			out[id] = append([]model.AvailabilitySlot(nil), slots...)
		}
	}
	return out, nil
}

func (f fakeAvailability) ReplaceForUser(_ context.Context, userID int64, slots []model.AvailabilitySlot) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	replaced := make([]model.AvailabilitySlot, len(slots))
	for i, s := range slots {
		s.ID = f.db.id()
		replaced[i] = s
	}
	f.db.slots[userID] = replaced
	return nil
}

type fakeSessions struct{ db *memDB }

func (f fakeSessions) Create(_ context.Context, session *model.Session) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	session.ID = f.db.id()
	session.Version = 1
	c := *session
	f.db.sessions[session.ID] = &c
	return nil
}

func (f fakeSessions) GetByID(_ context.Context, id int64) (*model.Session, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sessions[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (f fakeSessions) ListByTeacher(_ context.Context, teacherID int64) ([]*model.Session, error) {
	return f.filter(func(s *model.Session) bool { return s.TeacherID == teacherID }), nil
}

func (f fakeSessions) ListByStudent(_ context.Context, studentID int64) ([]*model.Session, error) {
	return f.filter(func(s *model.Session) bool { return s.StudentID == studentID }), nil
}

// ActiveForTeacher отдаёт все активные сессии учителя без фильтра по времени
func (f fakeSessions) ActiveForTeacher(_ context.Context, teacherID int64, _, _ time.Time) ([]*model.Session, error) {
	return f.filter(func(s *model.Session) bool { return s.TeacherID == teacherID && s.Status.IsActive() }), nil
}

func (f fakeSessions) ActiveForParticipant(_ context.Context, userID int64, _, _ time.Time) ([]*model.Session, error) {
	return f.filter(func(s *model.Session) bool { return s.IsParticipant(userID) && s.Status.IsActive() }), nil
}

func (f fakeSessions) Update(_ context.Context, session *model.Session, expectedVersion int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.sessions[session.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	session.Version = expectedVersion + 1
	c := *session
	f.db.sessions[session.ID] = &c
	return true, nil
}

func (f fakeSessions) CancelStale(_ context.Context, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, s := range f.db.sessions {
		if (s.Status == model.SessionStatusRequested || s.Status == model.SessionStatusConfirmed) &&
			s.ScheduledStart.Before(now) {
			s.Status = model.SessionStatusCancelled
			s.Version++
			n++
		}
	}
	return n, nil
}

func (f fakeSessions) filter(keep func(*model.Session) bool) []*model.Session {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.Session
	for _, s := range f.db.sessions {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out
}

type fakeRatings struct{ db *memDB }

func (f fakeRatings) Create(_ context.Context, rating *model.Rating) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.ratings {
		if r.SessionID == rating.SessionID && r.RaterID == rating.RaterID {
			return false, nil
		}
	}
	rating.ID = f.db.id()
	c := *rating
	f.db.ratings = append(f.db.ratings, &c)
	return true, nil
}

func (f fakeRatings) ListBySession(_ context.Context, sessionID int64) ([]*model.Rating, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.Rating
	for _, r := range f.db.ratings {
		if r.SessionID == sessionID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f fakeRatings) SummariesForRatees(_ context.Context, rateeIDs []int64) (map[int64]model.RatingSummary, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	wanted := make(map[int64]bool, len(rateeIDs))
	for _, id := range rateeIDs {
		wanted[id] = true
	}
	out := make(map[int64]model.RatingSummary)
	for _, r := range f.db.ratings {
		if !wanted[r.RateeID] {
			continue
		}
		s := out[r.RateeID]
		s.Count++
		s.SumOfAverages += r.Average()
		out[r.RateeID] = s
	}
	return out, nil
}

type fakeProgress struct{ db *memDB }

func (f fakeProgress) CountBySession(_ context.Context, sessionID int64) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, e := range f.db.progress {
		if e.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (f fakeProgress) Insert(_ context.Context, entry *model.ProgressEntry) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, e := range f.db.progress {
		if e.SessionID == entry.SessionID && e.UserID == entry.UserID {
			return false, nil
		}
	}
	entry.ID = f.db.id()
	c := *entry
	f.db.progress = append(f.db.progress, &c)
	return true, nil
}

func (f fakeProgress) ListByUser(_ context.Context, userID int64) ([]*model.ProgressEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*model.ProgressEntry
	for _, e := range f.db.progress {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

type inTxKey struct{}

// fakeTx сериализует все транзакции одним мьютексом; вложенные вызовы переиспользуют внешнюю
type fakeTx struct {
	mu sync.Mutex
	db *memDB
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, inTxKey{}, true))
}

func (t *fakeTx) WithinLockedTx(ctx context.Context, keys []int64, fn func(ctx context.Context) error) error {
	if t.db != nil {
		t.db.mu.Lock()
		t.db.lockedKeys = append(t.db.lockedKeys, slices.Clone(keys))
		t.db.mu.Unlock()
	}
	return t.WithinTx(ctx, fn)
}

type sentNotification struct {
	UserID int64
	Title  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title})
	return n.err
}

func (n *fakeNotifier) count(title string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.Title == title {
			c++
		}
	}
	return c
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// monday10 понедельник 5 октября 2026, 10:00 UTC
var monday10 = time.Date(2026, time.October, 5, 10, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func slot(day time.Weekday, startHour, startMinute, endHour, endMinute int) model.AvailabilitySlot {
	return model.AvailabilitySlot{
		DayOfWeek:   int(day),
		StartMinute: startHour*60 + startMinute,
		EndMinute:   endHour*60 + endMinute,
	}
}

func skillsOf(userID int64, teach, learn []int64) []model.SkillAssociation {
	var out []model.SkillAssociation
	for _, id := range teach {
		out = append(out, model.SkillAssociation{UserID: userID, SkillID: id, Kind: model.SkillKindTeach, Level: model.SkillLevelIntermediate})
	}
	for _, id := range learn {
		out = append(out, model.SkillAssociation{UserID: userID, SkillID: id, Kind: model.SkillKindLearn, Level: model.SkillLevelBeginner})
	}
	return out
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

// counterValue возвращает значение счётчика с указанными метками из реестра
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			matched := 0
			for _, pair := range m.GetLabel() {
				if v, ok := labels[pair.GetName()]; ok && v == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
