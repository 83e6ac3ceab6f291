package domain

import (
	"strings"
	"time"
)

// PersonalInfo holds the user's identity fields.
type PersonalInfo struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Gender      string
	Nationality string
}

// Contact holds the user's contact channels.
type Contact struct {
	Email string
	Phone string
}

// Address is a postal address.
type Address struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

// EmergencyContact is the person to reach on the user's behalf.
type EmergencyContact struct {
	Name     string
	Phone    string
	Relation string
}

// Preferences are user settings stored with the profile.
type Preferences struct {
	Language             string
	NotificationsEnabled bool
}

// UserProfile is the nested profile record edited by the user.
type UserProfile struct {
	ID               string
	Personal         PersonalInfo
	Contact          Contact
	Address          Address
	EmergencyContact EmergencyContact
	Preferences      Preferences
	ProfileImage     string
}

// Initials returns up to two upper-case initials for placeholder avatars.
func (p UserProfile) Initials() string {
	var b strings.Builder
	for _, part := range []string{p.Personal.FirstName, p.Personal.LastName} {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string([]rune(part)[:1])))
	}
	if email := strings.TrimSpace(p.Contact.Email); b.Len() == 0 && email != "" {
		b.WriteString(strings.ToUpper(string([]rune(email)[:1])))
	}
	return b.String()
}

// FlatProfile is the wire representation of UserProfile used by the profile
// endpoints. ProfileImage is a pointer so a patch can distinguish "unchanged"
// (nil) from "cleared" (empty string).
type FlatProfile struct {
	ID                       string  `json:"id,omitempty"`
	FirstName                string  `json:"first_name"`
	LastName                 string  `json:"last_name"`
	DateOfBirth              string  `json:"date_of_birth"`
	Gender                   string  `json:"gender"`
	Nationality              string  `json:"nationality"`
	Email                    string  `json:"email"`
	Phone                    string  `json:"phone"`
	Street                   string  `json:"street"`
	City                     string  `json:"city"`
	PostalCode               string  `json:"postal_code"`
	Country                  string  `json:"country"`
	EmergencyContactName     string  `json:"emergency_contact_name"`
	EmergencyContactPhone    string  `json:"emergency_contact_phone"`
	EmergencyContactRelation string  `json:"emergency_contact_relation"`
	Language                 string  `json:"language"`
	NotificationsEnabled     bool    `json:"notifications_enabled"`
	ProfileImage             *string `json:"profile_image,omitempty"`
}

// Flatten converts the nested profile into its wire form. The image is left
// nil; callers set it when the image changed.
func (p UserProfile) Flatten() FlatProfile {
	return FlatProfile{
		ID:                       p.ID,
		FirstName:                p.Personal.FirstName,
		LastName:                 p.Personal.LastName,
		DateOfBirth:              p.Personal.DateOfBirth,
		Gender:                   p.Personal.Gender,
		Nationality:              p.Personal.Nationality,
		Email:                    p.Contact.Email,
		Phone:                    p.Contact.Phone,
		Street:                   p.Address.Street,
		City:                     p.Address.City,
		PostalCode:               p.Address.PostalCode,
		Country:                  p.Address.Country,
		EmergencyContactName:     p.EmergencyContact.Name,
		EmergencyContactPhone:    p.EmergencyContact.Phone,
		EmergencyContactRelation: p.EmergencyContact.Relation,
		Language:                 p.Preferences.Language,
		NotificationsEnabled:     p.Preferences.NotificationsEnabled,
	}
}

// Nest converts the wire form back into a UserProfile.
func (f FlatProfile) Nest() UserProfile {
	p := UserProfile{
		ID: f.ID,
		Personal: PersonalInfo{
			FirstName:   f.FirstName,
			LastName:    f.LastName,
			DateOfBirth: f.DateOfBirth,
			Gender:      f.Gender,
			Nationality: f.Nationality,
		},
		Contact: Contact{Email: f.Email, Phone: f.Phone},
		Address: Address{
			Street:     f.Street,
			City:       f.City,
			PostalCode: f.PostalCode,
			Country:    f.Country,
		},
		EmergencyContact: EmergencyContact{
			Name:     f.EmergencyContactName,
			Phone:    f.EmergencyContactPhone,
			Relation: f.EmergencyContactRelation,
		},
		Preferences: Preferences{
			Language:             f.Language,
			NotificationsEnabled: f.NotificationsEnabled,
		},
	}
	if f.ProfileImage != nil {
		p.ProfileImage = *f.ProfileImage
	}
	return p
}

// Document is a file stored for the user by the backend.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ImageKind orders the sources a profile image can be displayed from.
type ImageKind int

const (
	ImagePendingPreview ImageKind = iota
	ImageDeletedPlaceholder
	ImageServer
	ImageGenerated
)

func (k ImageKind) String() string {
	switch k {
	case ImagePendingPreview:
		return "pending-preview"
	case ImageDeletedPlaceholder:
		return "deleted-placeholder"
	case ImageServer:
		return "server"
	case ImageGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// ImageSource is the resolved profile image to show. URL is empty for the
// placeholder kinds; Initials is set for ImageGenerated.
type ImageSource struct {
	Kind     ImageKind
	URL      string
	Initials string
}
