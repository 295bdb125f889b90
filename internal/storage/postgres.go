package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/aidecare/internal/config"
	"github.com/your-org/aidecare/internal/models"
)

// ErrDuplicateEmail is returned when signup hits the unique email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Patients ---

const patientColumns = `id, email, password_hash, first_name, last_name, role,
	date_of_birth, gender, blood_type, height_cm, weight_kg,
	phone_number, address, city, state_province, postal_code, country,
	emergency_contact_name, emergency_contact_relationship, emergency_contact_phone, emergency_contact_email,
	allergies, current_medications, medical_conditions,
	profile_photo_key, email_notifications, sms_notifications, created_at`

func scanPatient(row pgx.Row) (*models.Patient, error) {
	p := &models.Patient{}
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.Role,
		&p.DateOfBirth, &p.Gender, &p.BloodType, &p.HeightCM, &p.WeightKG,
		&p.PhoneNumber, &p.Address, &p.City, &p.StateProvince, &p.PostalCode, &p.Country,
		&p.EmergencyContactName, &p.EmergencyContactRelationship, &p.EmergencyContactPhone, &p.EmergencyContactEmail,
		&p.Allergies, &p.CurrentMedications, &p.MedicalConditions,
		&p.ProfilePhotoKey, &p.EmailNotifications, &p.SMSNotifications, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CreatePatient(ctx context.Context, p *models.Patient) error {
	p.ID = uuid.New()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (id, email, password_hash, first_name, last_name, role, email_notifications, sms_notifications)
		 VALUES ($1, $2, $3, $4, $5, $6, true, true) RETURNING created_at`,
		p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Role,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create patient: %w", err)
	}
	p.EmailNotifications = true
	p.SMSNotifications = true
	return nil
}

func (s *PostgresStore) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return scanPatient(s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
}

func (s *PostgresStore) GetPatientByEmail(ctx context.Context, email string) (*models.Patient, error) {
	return scanPatient(s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE email = $1`, email))
}

// UpdatePatient writes the full mutable profile of an existing patient.
func (s *PostgresStore) UpdatePatient(ctx context.Context, p *models.Patient) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE patients SET
			email = $2, first_name = $3, last_name = $4,
			date_of_birth = $5, gender = $6, blood_type = $7, height_cm = $8, weight_kg = $9,
			phone_number = $10, address = $11, city = $12, state_province = $13, postal_code = $14, country = $15,
			emergency_contact_name = $16, emergency_contact_relationship = $17,
			emergency_contact_phone = $18, emergency_contact_email = $19,
			allergies = $20, current_medications = $21, medical_conditions = $22,
			email_notifications = $23, sms_notifications = $24
		 WHERE id = $1`,
		p.ID, p.Email, p.FirstName, p.LastName,
		p.DateOfBirth, p.Gender, p.BloodType, p.HeightCM, p.WeightKG,
		p.PhoneNumber, p.Address, p.City, p.StateProvince, p.PostalCode, p.Country,
		p.EmergencyContactName, p.EmergencyContactRelationship,
		p.EmergencyContactPhone, p.EmergencyContactEmail,
		p.Allergies, p.CurrentMedications, p.MedicalConditions,
		p.EmailNotifications, p.SMSNotifications)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE patients SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProfilePhoto(ctx context.Context, id uuid.UUID, key string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE patients SET profile_photo_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("update profile photo: %w", err)
	}
	return nil
}

// --- Scan records ---

const scanColumns = `id, patient_id, scan_date, scan_type, facility, symptoms_notes,
	image_key, overlay_key, detections, finding_summary, narrative, lesion_area_cm2, created_at`

func scanRecord(row pgx.Row) (*models.ScanRecord, error) {
	r := &models.ScanRecord{}
	err := row.Scan(&r.ID, &r.PatientID, &r.ScanDate, &r.ScanType, &r.Facility, &r.SymptomsNotes,
		&r.ImageKey, &r.OverlayKey, &r.Detections, &r.FindingSummary, &r.Narrative,
		&r.LesionAreaCM2, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return r, nil
}

// CreateScanRecord persists a completed pipeline run as a single
// transactional insert. The transaction is rolled back on any failure
// so a half-populated record is never visible.
func (s *PostgresStore) CreateScanRecord(ctx context.Context, r *models.ScanRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scan insert: %w", err)
	}
	defer tx.Rollback(ctx)

	r.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO scan_records (id, patient_id, scan_date, scan_type, facility, symptoms_notes,
			image_key, overlay_key, detections, finding_summary, narrative, lesion_area_cm2)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING created_at`,
		r.ID, r.PatientID, r.ScanDate, r.ScanType, r.Facility, r.SymptomsNotes,
		r.ImageKey, r.OverlayKey, r.Detections, r.FindingSummary, r.Narrative, r.LesionAreaCM2,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scan insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScanRecord(ctx context.Context, id uuid.UUID) (*models.ScanRecord, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scan_records WHERE id = $1`, id))
}

// ListRecentScans returns the patient's latest records,
// reverse-chronological by creation time.
func (s *PostgresStore) ListRecentScans(ctx context.Context, patientID uuid.UUID, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+scanColumns+` FROM scan_records WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent scans: %w", err)
	}
	return collectScans(rows)
}

// ListScanHistory returns all of the patient's records ascending by
// scan date, the order the history narrative expects.
func (s *PostgresStore) ListScanHistory(ctx context.Context, patientID uuid.UUID) ([]models.ScanRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+scanColumns+` FROM scan_records WHERE patient_id = $1 ORDER BY scan_date ASC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("list scan history: %w", err)
	}
	return collectScans(rows)
}

func collectScans(rows pgx.Rows) ([]models.ScanRecord, error) {
	defer rows.Close()
	var records []models.ScanRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// --- Chat messages ---

func (s *PostgresStore) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	m.ID = uuid.New()
	m.Timestamp = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, patient_id, scan_id, user_message, ai_response, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.PatientID, m.ScanID, m.UserMessage, m.AIResponse, m.Timestamp)
	if err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}
	return nil
}

// ListChatByScan returns the conversation for one scan, ascending by
// timestamp.
func (s *PostgresStore) ListChatByScan(ctx context.Context, scanID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, scan_id, user_message, ai_response, timestamp
		 FROM chat_messages WHERE scan_id = $1 ORDER BY timestamp ASC LIMIT $2`,
		scanID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat by scan: %w", err)
	}
	return collectChat(rows)
}

// ListChatByPatient returns the patient's conversation across all
// scans, ascending by timestamp.
func (s *PostgresStore) ListChatByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, scan_id, user_message, ai_response, timestamp
		 FROM chat_messages WHERE patient_id = $1 ORDER BY timestamp ASC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat by patient: %w", err)
	}
	return collectChat(rows)
}

func collectChat(rows pgx.Rows) ([]models.ChatMessage, error) {
	defer rows.Close()
	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.PatientID, &m.ScanID, &m.UserMessage, &m.AIResponse, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
