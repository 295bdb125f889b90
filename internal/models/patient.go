package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient is an account with its demographic and clinical profile.
// Profiles are mutated only through the profile-update endpoint and
// are never deleted.
type Patient struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         string    `json:"role" db:"role"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender      string     `json:"gender,omitempty" db:"gender"`
	BloodType   string     `json:"blood_type,omitempty" db:"blood_type"`
	HeightCM    float64    `json:"height_cm,omitempty" db:"height_cm"`
	WeightKG    float64    `json:"weight_kg,omitempty" db:"weight_kg"`

	PhoneNumber   string `json:"phone_number,omitempty" db:"phone_number"`
	Address       string `json:"address,omitempty" db:"address"`
	City          string `json:"city,omitempty" db:"city"`
	StateProvince string `json:"state_province,omitempty" db:"state_province"`
	PostalCode    string `json:"postal_code,omitempty" db:"postal_code"`
	Country       string `json:"country,omitempty" db:"country"`

	EmergencyContactName         string `json:"emergency_contact_name,omitempty" db:"emergency_contact_name"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship,omitempty" db:"emergency_contact_relationship"`
	EmergencyContactPhone        string `json:"emergency_contact_phone,omitempty" db:"emergency_contact_phone"`
	EmergencyContactEmail        string `json:"emergency_contact_email,omitempty" db:"emergency_contact_email"`

	Allergies          string `json:"allergies,omitempty" db:"allergies"`
	CurrentMedications string `json:"current_medications,omitempty" db:"current_medications"`
	MedicalConditions  string `json:"medical_conditions,omitempty" db:"medical_conditions"`

	ProfilePhotoKey    string `json:"profile_photo_key,omitempty" db:"profile_photo_key"`
	EmailNotifications bool   `json:"email_notifications" db:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications" db:"sms_notifications"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FullName returns "First Last" for session display.
func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
