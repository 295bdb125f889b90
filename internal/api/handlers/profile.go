package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/aidecare/internal/auth"
	"github.com/your-org/aidecare/internal/storage"
	"github.com/your-org/aidecare/pkg/dto"
)

type ProfileHandler struct {
	db     *storage.PostgresStore
	images *storage.ImageStore
}

func NewProfileHandler(db *storage.PostgresStore, images *storage.ImageStore) *ProfileHandler {
	return &ProfileHandler{db: db, images: images}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	patient, err := h.db.GetPatient(c.Request.Context(), auth.PatientID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if patient == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}
	c.JSON(http.StatusOK, patientResponse(patient))
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patient, err := h.db.GetPatient(c.Request.Context(), auth.PatientID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if patient == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}

	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateFormat, *req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_of_birth, expected YYYY-MM-DD"})
			return
		}
		patient.DateOfBirth = &dob
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.BloodType != nil {
		patient.BloodType = *req.BloodType
	}
	if req.HeightCM != nil {
		patient.HeightCM = *req.HeightCM
	}
	if req.WeightKG != nil {
		patient.WeightKG = *req.WeightKG
	}
	if req.PhoneNumber != nil {
		patient.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.City != nil {
		patient.City = *req.City
	}
	if req.StateProvince != nil {
		patient.StateProvince = *req.StateProvince
	}
	if req.PostalCode != nil {
		patient.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		patient.Country = *req.Country
	}
	if req.EmergencyContactName != nil {
		patient.EmergencyContactName = *req.EmergencyContactName
	}
	if req.EmergencyContactRelationship != nil {
		patient.EmergencyContactRelationship = *req.EmergencyContactRelationship
	}
	if req.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = *req.EmergencyContactPhone
	}
	if req.EmergencyContactEmail != nil {
		patient.EmergencyContactEmail = *req.EmergencyContactEmail
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.CurrentMedications != nil {
		patient.CurrentMedications = *req.CurrentMedications
	}
	if req.MedicalConditions != nil {
		patient.MedicalConditions = *req.MedicalConditions
	}
	if req.EmailNotifications != nil {
		patient.EmailNotifications = *req.EmailNotifications
	}
	if req.SMSNotifications != nil {
		patient.SMSNotifications = *req.SMSNotifications
	}

	if err := h.db.UpdatePatient(c.Request.Context(), patient); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, patientResponse(patient))
}

// UploadPhoto stores a profile photo and records its object key.
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing photo file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read photo"})
		return
	}

	patientID := auth.PatientID(c)
	key := "profiles/" + patientID.String() + "/" + header.Filename
	contentType := header.Header.Get("Content-Type")
	if err := h.images.Put(c.Request.Context(), key, data, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.UpdateProfilePhoto(c.Request.Context(), patientID, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile_photo_key": key})
}

// Photo streams the stored profile photo back.
func (h *ProfileHandler) Photo(c *gin.Context) {
	patient, err := h.db.GetPatient(c.Request.Context(), auth.PatientID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if patient == nil || patient.ProfilePhotoKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no profile photo"})
		return
	}

	data, err := h.images.Get(c.Request.Context(), patient.ProfilePhotoKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
