package model

import "strings"

type ContactKind string

const (
	ContactKindWhatsApp ContactKind = "whatsapp"
	ContactKindEmail    ContactKind = "email"
	ContactKindNone     ContactKind = "none"
)

// ContactChannel is the best way to reach a user outside the platform.
type ContactChannel struct {
	Kind  ContactKind `json:"kind"`
	Value string      `json:"value,omitempty"`
}

// BestContact picks WhatsApp when the user has a number, e-mail otherwise.
func BestContact(u *User) ContactChannel {
	if u == nil {
		return ContactChannel{Kind: ContactKindNone}
	}

	if digits := phoneDigits(u.WhatsApp); digits != "" {
		return ContactChannel{Kind: ContactKindWhatsApp, Value: "https://wa.me/" + digits}
	}

	if email := strings.TrimSpace(u.Email); email != "" {
		return ContactChannel{Kind: ContactKindEmail, Value: "mailto:" + email}
	}

	return ContactChannel{Kind: ContactKindNone}
}

func phoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
