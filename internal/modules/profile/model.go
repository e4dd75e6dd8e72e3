// README: User contact profile. Every contact channel is optional.
package profile

import (
	"errors"
	"time"

	"masar/internal/types"
)

var ErrNotFound = errors.New("profile not found")

const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

type Profile struct {
	UID       types.ID   `json:"uid"`
	FullName  string     `json:"full_name"`
	Role      types.Role `json:"role"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	PushToken *string    `json:"-"`
	CarPlate  *string    `json:"car_plate,omitempty"`
	Language  string     `json:"language"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Contact is what a notification needs to reach one person.
type Contact struct {
	Name      string
	Email     string
	Phone     string
	PushToken string
	CarPlate  string
	Language  string
}

func (p *Profile) Contact() Contact {
	return Contact{
		Name:      p.FullName,
		Email:     deref(p.Email),
		Phone:     deref(p.Phone),
		PushToken: deref(p.PushToken),
		CarPlate:  deref(p.CarPlate),
		Language:  p.Language,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
