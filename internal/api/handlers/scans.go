package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/aidecare/internal/auth"
	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/internal/pipeline"
	"github.com/your-org/aidecare/internal/storage"
	"github.com/your-org/aidecare/pkg/dto"
)

type ScanHandler struct {
	db        *storage.PostgresStore
	images    *storage.ImageStore
	pipeline  *pipeline.Pipeline
	generator llm.Client

	MaxUploadSize int64
}

func NewScanHandler(db *storage.PostgresStore, images *storage.ImageStore, pl *pipeline.Pipeline, generator llm.Client) *ScanHandler {
	return &ScanHandler{db: db, images: images, pipeline: pl, generator: generator}
}

// Analyze runs the full pipeline on an uploaded scan image.
func (h *ScanHandler) Analyze(c *gin.Context) {
	var form dto.AnalyzeScanForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scanDate, err := time.Parse(dateFormat, form.ScanDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan_date, expected YYYY-MM-DD"})
		return
	}

	file, header, err := c.Request.FormFile("scan_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scan_image file"})
		return
	}
	defer file.Close()

	if h.MaxUploadSize > 0 && header.Size > h.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "scan image too large"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read scan image"})
		return
	}

	out, err := h.pipeline.Run(c.Request.Context(), pipeline.Input{
		PatientID:     auth.PatientID(c),
		Filename:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		ImageData:     data,
		ScanDate:      scanDate,
		ScanType:      form.ScanType,
		Facility:      form.Facility,
		SymptomsNotes: form.SymptomsNotes,
	})
	if err != nil {
		status, msg := pipelineStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	resp := dto.AnalyzeScanResponse{Scan: scanResponse(out.Record)}

	if form.SeedChat {
		if seeded := h.seedChat(c, out); seeded != nil {
			resp.SeededMessage = seeded
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// seedChat opens the patient-facing conversation for a fresh record.
// Failures are logged and swallowed: the record already exists and the
// patient can still start the chat manually.
func (h *ScanHandler) seedChat(c *gin.Context, out *pipeline.Output) *dto.ChatMessageResponse {
	reply, err := h.generator.Chat(c.Request.Context(), out.PatientPrompt, "system", nil)
	if err != nil {
		slog.Warn("seed chat failed", "error", err, "scan_id", out.Record.ID)
		return nil
	}

	msg := &models.ChatMessage{
		PatientID:   out.Record.PatientID,
		ScanID:      &out.Record.ID,
		UserMessage: "Please explain my scan results to me.",
		AIResponse:  reply,
	}
	if err := h.db.CreateChatMessage(c.Request.Context(), msg); err != nil {
		slog.Warn("store seeded chat failed", "error", err, "scan_id", out.Record.ID)
		return nil
	}

	r := chatMessageResponse(msg)
	return &r
}

// pipelineStatus maps a pipeline failure onto an HTTP status and a
// user-safe message.
func pipelineStatus(err error) (int, string) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError, "internal error"
	}
	switch perr.Kind {
	case pipeline.KindValidation:
		return http.StatusBadRequest, perr.UserMessage
	case pipeline.KindDetection:
		return http.StatusUnprocessableEntity, perr.UserMessage
	case pipeline.KindInferenceTransport, pipeline.KindInferenceService:
		return http.StatusBadGateway, perr.UserMessage
	default:
		return http.StatusInternalServerError, perr.UserMessage
	}
}

// List returns the patient's recent scans, newest first.
func (h *ScanHandler) List(c *gin.Context) {
	limit := 5
	if v := c.Query("limit"); v != "" {
		if n, err := parsePositive(v); err == nil {
			limit = n
		}
	}

	scans, err := h.db.ListRecentScans(c.Request.Context(), auth.PatientID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ScanResponse, 0, len(scans))
	for i := range scans {
		resp = append(resp, scanResponse(&scans[i]))
	}
	c.JSON(http.StatusOK, dto.ScanListResponse{Scans: resp, Total: len(resp)})
}

func (h *ScanHandler) Get(c *gin.Context) {
	record, ok := h.ownedScan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanResponse(record))
}

// Image streams the original upload.
func (h *ScanHandler) Image(c *gin.Context) {
	record, ok := h.ownedScan(c)
	if !ok {
		return
	}
	h.streamObject(c, record.ImageKey)
}

// Overlay streams the annotated render.
func (h *ScanHandler) Overlay(c *gin.Context) {
	record, ok := h.ownedScan(c)
	if !ok {
		return
	}
	if record.OverlayKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no overlay for this scan"})
		return
	}
	h.streamObject(c, record.OverlayKey)
}

// ownedScan loads the :id scan and enforces that it belongs to the
// authenticated patient.
func (h *ScanHandler) ownedScan(c *gin.Context) (*models.ScanRecord, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return nil, false
	}

	record, err := h.db.GetScanRecord(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if record == nil || record.PatientID != auth.PatientID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return nil, false
	}
	return record, true
}

func (h *ScanHandler) streamObject(c *gin.Context, key string) {
	data, err := h.images.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
