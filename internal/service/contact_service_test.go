package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/skillswap/internal/model"
	"github.com/Freeeeeet/skillswap/internal/ratelimit"
)

type failingLimiter struct{ err error }

func (l failingLimiter) Allow(context.Context, string) (bool, error) { return false, l.err }

func TestRevealContactThrottled(t *testing.T) {
	db := newMemDB()
	svc := NewContactService(db.stores(), ratelimit.NewSlidingWindow(3, time.Hour), nopLogger())
	ctx := context.Background()

	actor := db.addUser(model.User{Name: "actor", IsPublic: true})
	peer := db.addUser(model.User{Name: "peer", IsPublic: true, WhatsApp: "+49 (151) 234-567", Email: "peer@example.com"})
	other := db.addUser(model.User{Name: "other", IsPublic: true, Email: "other@example.com"})

	for i := 0; i < 3; i++ {
		contact, err := svc.RevealContact(ctx, actor.ID, peer.ID)
		if err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
		if contact.Kind != model.ContactKindWhatsApp || contact.Value != "https://wa.me/49151234567" {
			t.Fatalf("unexpected contact %+v", contact)
		}
	}

	_, err := svc.RevealContact(ctx, actor.ID, peer.ID)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	// лимит считается для пары, другой пользователь доступен
	contact, err := svc.RevealContact(ctx, actor.ID, other.ID)
	if err != nil {
		t.Fatalf("reveal other: %v", err)
	}
	if contact.Kind != model.ContactKindEmail || contact.Value != "mailto:other@example.com" {
		t.Fatalf("unexpected contact %+v", contact)
	}
}

func TestRevealContactRejections(t *testing.T) {
	db := newMemDB()
	ctx := context.Background()

	actor := db.addUser(model.User{Name: "actor", IsPublic: true})
	moderator := db.addUser(model.User{Name: "moderator", Role: model.RoleModerator})
	hidden := db.addUser(model.User{Name: "hidden", Email: "hidden@example.com"})
	public := db.addUser(model.User{Name: "public", IsPublic: true})

	svc := NewContactService(db.stores(), ratelimit.NewSlidingWindow(3, time.Hour), nopLogger())

	if _, err := svc.RevealContact(ctx, actor.ID, actor.ID); !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for self, got %v", err)
	}
	if _, err := svc.RevealContact(ctx, actor.ID, 404); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, err := svc.RevealContact(ctx, actor.ID, hidden.ID); !IsKind(err, KindAuthorization) {
		t.Fatalf("expected authorization error for private profile, got %v", err)
	}
	if _, err := svc.RevealContact(ctx, moderator.ID, hidden.ID); err != nil {
		t.Fatalf("expected moderator to see private profile, got %v", err)
	}

	broken := NewContactService(db.stores(), failingLimiter{err: errors.New("redis down")}, nopLogger())
	if _, err := broken.RevealContact(ctx, actor.ID, public.ID); err == nil || IsKind(err, KindRateLimited) {
		t.Fatalf("expected limiter failure to surface as an internal error, got %v", err)
	}
}
