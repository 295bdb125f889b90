package dto

import (
	"time"

	"github.com/google/uuid"
)

// PatientResponse is the public view of a patient account.
type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	BloodType   string     `json:"blood_type,omitempty"`
	HeightCM    float64    `json:"height_cm,omitempty"`
	WeightKG    float64    `json:"weight_kg,omitempty"`

	PhoneNumber   string `json:"phone_number,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"state_province,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`

	EmergencyContactName         string `json:"emergency_contact_name,omitempty"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship,omitempty"`
	EmergencyContactPhone        string `json:"emergency_contact_phone,omitempty"`
	EmergencyContactEmail        string `json:"emergency_contact_email,omitempty"`

	Allergies          string `json:"allergies,omitempty"`
	CurrentMedications string `json:"current_medications,omitempty"`
	MedicalConditions  string `json:"medical_conditions,omitempty"`

	ProfilePhotoKey    string `json:"profile_photo_key,omitempty"`
	EmailNotifications bool   `json:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications"`

	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileRequest carries the full editable profile. Every field
// is optional; omitted fields keep their current value.
type UpdateProfileRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`

	DateOfBirth *string  `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Gender      *string  `json:"gender,omitempty"`
	BloodType   *string  `json:"blood_type,omitempty"`
	HeightCM    *float64 `json:"height_cm,omitempty"`
	WeightKG    *float64 `json:"weight_kg,omitempty"`

	PhoneNumber   *string `json:"phone_number,omitempty"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	StateProvince *string `json:"state_province,omitempty"`
	PostalCode    *string `json:"postal_code,omitempty"`
	Country       *string `json:"country,omitempty"`

	EmergencyContactName         *string `json:"emergency_contact_name,omitempty"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship,omitempty"`
	EmergencyContactPhone        *string `json:"emergency_contact_phone,omitempty"`
	EmergencyContactEmail        *string `json:"emergency_contact_email,omitempty"`

	Allergies          *string `json:"allergies,omitempty"`
	CurrentMedications *string `json:"current_medications,omitempty"`
	MedicalConditions  *string `json:"medical_conditions,omitempty"`

	EmailNotifications *bool `json:"email_notifications,omitempty"`
	SMSNotifications   *bool `json:"sms_notifications,omitempty"`
}
