package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/aidecare/internal/auth"
	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/internal/observability"
	"github.com/your-org/aidecare/internal/storage"
	"github.com/your-org/aidecare/pkg/dto"
)

const chatHistoryLimit = 20

type ChatHandler struct {
	db        *storage.PostgresStore
	generator llm.Client
}

func NewChatHandler(db *storage.PostgresStore, generator llm.Client) *ChatHandler {
	return &ChatHandler{db: db, generator: generator}
}

// Send generates a response to one patient message. When a scan_id is
// given, the scan's prior conversation is replayed as context and the
// exchange is stored against that scan.
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patientID := auth.PatientID(c)

	var history []llm.Turn
	if req.ScanID != nil {
		scan, err := h.db.GetScanRecord(c.Request.Context(), *req.ScanID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if scan == nil || scan.PatientID != patientID {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
			return
		}

		prior, err := h.db.ListChatByScan(c.Request.Context(), *req.ScanID, chatHistoryLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, m := range prior {
			history = append(history, llm.Turn{UserText: m.UserMessage, AIText: m.AIResponse})
		}
	}

	reply, err := h.generator.Chat(c.Request.Context(), req.Message, "user", history)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": chatErrorMessage(err)})
		return
	}
	observability.ChatTurns.Inc()

	msg := &models.ChatMessage{
		PatientID:   patientID,
		ScanID:      req.ScanID,
		UserMessage: req.Message,
		AIResponse:  reply,
	}
	if err := h.db.CreateChatMessage(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chatMessageResponse(msg))
}

// History lists the patient's conversation, optionally scoped to one
// scan via ?scan_id=.
func (h *ChatHandler) History(c *gin.Context) {
	patientID := auth.PatientID(c)

	limit := chatHistoryLimit
	if v := c.Query("limit"); v != "" {
		if n, err := parsePositive(v); err == nil {
			limit = n
		}
	}

	var (
		messages []models.ChatMessage
		err      error
	)
	if v := c.Query("scan_id"); v != "" {
		scanID, perr := uuid.Parse(v)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan_id"})
			return
		}
		scan, gerr := h.db.GetScanRecord(c.Request.Context(), scanID)
		if gerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gerr.Error()})
			return
		}
		if scan == nil || scan.PatientID != patientID {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
			return
		}
		messages, err = h.db.ListChatByScan(c.Request.Context(), scanID, limit)
	} else {
		messages, err = h.db.ListChatByPatient(c.Request.Context(), patientID, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		resp = append(resp, chatMessageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, dto.ChatHistoryResponse{Messages: resp, Total: len(resp)})
}

// chatErrorMessage surfaces the LLM client's user-safe text.
func chatErrorMessage(err error) string {
	var terr *llm.TransportError
	if errors.As(err, &terr) {
		return terr.UserMessage()
	}
	var serr *llm.ServiceError
	if errors.As(err, &serr) {
		return serr.UserMessage()
	}
	return llm.UserMsgUnreachable
}
