package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Freeeeeet/skillswap/internal/model"
)

func TestRateSession(t *testing.T) {
	db := newMemDB()
	notifier := &fakeNotifier{}
	svc := NewRatingService(db.stores(), notifier, nil, nopLogger())
	ctx := context.Background()

	teacher := db.addUser(model.User{Name: "teacher"})
	student := db.addUser(model.User{Name: "student"})
	session := completedSession(db, teacher.ID, student.ID)
	good := RatingInput{Communication: 5, Skill: 4, Attitude: 5, Punctuality: 4}

	rating, err := svc.RateSession(ctx, session.ID, student.ID, good)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rating.RateeID != teacher.ID {
		t.Fatalf("expected ratee %d, got %d", teacher.ID, rating.RateeID)
	}
	if rating.Average() != 4.5 {
		t.Fatalf("expected average 4.5, got %v", rating.Average())
	}
	if notifier.count("New rating") != 1 || notifier.sent[0].UserID != teacher.ID {
		t.Fatal("expected the ratee to be notified")
	}

	if _, err := svc.RateSession(ctx, session.ID, student.ID, good); !IsKind(err, KindConflict) {
		t.Fatalf("expected conflict on duplicate rating, got %v", err)
	}
	if _, err := svc.RateSession(ctx, session.ID, teacher.ID, good); err != nil {
		t.Fatalf("expected the other participant to rate too, got %v", err)
	}

	summary, err := svc.Reputation(ctx, teacher.ID)
	if err != nil {
		t.Fatalf("reputation: %v", err)
	}
	if summary.Count != 1 || summary.Mean() != 4.5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRateSessionRejections(t *testing.T) {
	db := newMemDB()
	svc := NewRatingService(db.stores(), nil, nil, nopLogger())
	ctx := context.Background()

	teacher := db.addUser(model.User{Name: "teacher"})
	student := db.addUser(model.User{Name: "student"})
	outsider := db.addUser(model.User{Name: "outsider"})
	completed := completedSession(db, teacher.ID, student.ID)
	confirmed := db.addSession(model.Session{TeacherID: teacher.ID, StudentID: student.ID, Status: model.SessionStatusConfirmed})
	good := RatingInput{Communication: 5, Skill: 5, Attitude: 5, Punctuality: 5}

	tests := []struct {
		name      string
		sessionID int64
		raterID   int64
		input     RatingInput
		want      ErrorKind
	}{
		{"dimension too low", completed.ID, student.ID, RatingInput{Communication: 0, Skill: 5, Attitude: 5, Punctuality: 5}, KindValidation},
		{"dimension too high", completed.ID, student.ID, RatingInput{Communication: 5, Skill: 5, Attitude: 6, Punctuality: 5}, KindValidation},
		{"not completed", confirmed.ID, student.ID, good, KindConflict},
		{"outsider", completed.ID, outsider.ID, good, KindAuthorization},
		{"unknown session", 404, student.ID, good, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RateSession(ctx, tt.sessionID, tt.raterID, tt.input)
			if !IsKind(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
		})
	}

	if len(db.ratings) != 0 {
		t.Fatalf("expected no ratings, got %d", len(db.ratings))
	}
}

func TestValidateRatingNamesDimension(t *testing.T) {
	err := validateRating(RatingInput{Communication: 5, Skill: 5, Attitude: 5, Punctuality: 0})
	if !IsKind(err, KindValidation) || !strings.Contains(err.Error(), "punctuality") {
		t.Fatalf("expected punctuality validation error, got %v", err)
	}
	if err := validateRating(RatingInput{Communication: 1, Skill: 2, Attitude: 3, Punctuality: 5}); err != nil {
		t.Fatalf("expected valid rating, got %v", err)
	}
}
