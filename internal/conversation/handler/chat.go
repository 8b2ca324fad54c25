package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/conversation"
	"claims_intake_backend/internal/conversation/session"
	"claims_intake_backend/platform/httpkit"
	"claims_intake_backend/platform/phone"
	"claims_intake_backend/platform/validator"
)

const (
	sessionHeader     = "X-Session-Token"
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"

	defaultPollLimit = 50
	maxPollLimit     = 200
)

// ChatHandler is the web chat surface: session bootstrap, message send, file
// upload and poll-based receive. The browser holds an opaque session token;
// everything else lives server-side on the case.
type ChatHandler struct {
	ctrl     *conversation.Controller
	store    conversation.Store
	sessions *session.Store
	val      *validator.Validator
}

func NewChatHandler(ctrl *conversation.Controller, store conversation.Store, sessions *session.Store, val *validator.Validator) *ChatHandler {
	return &ChatHandler{ctrl: ctrl, store: store, sessions: sessions, val: val}
}

// StartSessionRequest opens (or resumes) a web conversation for a phone number.
type StartSessionRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,min=6,max=20"`
}

// StartSessionResponse returns the session token the browser must present on
// every subsequent chat call.
type StartSessionResponse struct {
	Token  string    `json:"token"`
	CaseID uuid.UUID `json:"caseId"`
	Stage  string    `json:"stage"`
}

// HandleStartSession creates a chat session bound to the caller's active case.
// POST /api/v1/chat/session
func (h *ChatHandler) HandleStartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	normalized := phone.NormalizeE164(req.PhoneNumber)
	if normalized == "" {
		httpkit.Error(c, http.StatusBadRequest, "unparseable phone number", nil)
		return
	}

	ctx := c.Request.Context()
	_, cs, err := h.ctrl.ResolveCase(ctx, normalized, domain.ChannelWeb)
	if httpkit.HandleError(c, err) {
		return
	}

	token, err := h.sessions.Create(ctx, cs.ID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, StartSessionResponse{
		Token:  token,
		CaseID: cs.ID,
		Stage:  string(cs.Stage),
	})
}

// SendMessageRequest is one chat message from the browser.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// HandleSendMessage processes one web chat message.
// POST /api/v1/chat/messages
func (h *ChatHandler) HandleSendMessage(c *gin.Context) {
	caseID, ok := h.resolveSession(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	// Web messages have no provider ID; the session token plus HTTP semantics
	// make client-side retries rare enough to accept.
	if err := h.ctrl.HandleText(c.Request.Context(), caseID, domain.ChannelWeb, req.Text, ""); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}

// HandleUpload accepts one or more documents or videos over multipart form,
// under repeated "files" parts (a single "file" part is also accepted).
// POST /api/v1/chat/uploads
func (h *ChatHandler) HandleUpload(c *gin.Context) {
	caseID, ok := h.resolveSession(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "missing files field", nil)
		return
	}

	items := make([]conversation.InboundMedia, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "unable to read file", nil)
			return
		}
		defer f.Close()
		items = append(items, conversation.InboundMedia{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}

	if err := h.ctrl.HandleMedia(c.Request.Context(), caseID, domain.ChannelWeb, items, ""); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}

// MessageResponse is one communication log entry as served to the browser.
type MessageResponse struct {
	ID        int64    `json:"id"`
	Direction string   `json:"direction"`
	Content   string   `json:"content"`
	Buttons   []string `json:"buttons,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

// HandlePollMessages returns log entries after the given cursor. The browser
// polls this; there is no push channel on the web side.
// GET /api/v1/chat/messages?after=<id>&limit=<n>
func (h *ChatHandler) HandlePollMessages(c *gin.Context) {
	caseID, ok := h.resolveSession(c)
	if !ok {
		return
	}

	afterID, _ := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPollLimit)))
	if err != nil || limit <= 0 || limit > maxPollLimit {
		limit = defaultPollLimit
	}

	messages, err := h.store.ListMessages(c.Request.Context(), caseID, afterID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]MessageResponse, len(messages))
	for i, m := range messages {
		result[i] = MessageResponse{
			ID:        m.ID,
			Direction: string(m.Direction),
			Content:   m.Content,
			Buttons:   m.Buttons,
			CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	httpkit.OK(c, result)
}

// CaseStatusResponse is the case summary shown in the web chat header.
type CaseStatusResponse struct {
	CaseID         uuid.UUID `json:"caseId"`
	Stage          string    `json:"stage"`
	Resolution     string    `json:"resolution"`
	IsHumanManaged bool      `json:"isHumanManaged"`
}

// HandleCaseStatus returns the session's case summary.
// GET /api/v1/chat/case
func (h *ChatHandler) HandleCaseStatus(c *gin.Context) {
	caseID, ok := h.resolveSession(c)
	if !ok {
		return
	}

	cs, err := h.store.GetCase(c.Request.Context(), caseID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, CaseStatusResponse{
		CaseID:         cs.ID,
		Stage:          string(cs.Stage),
		Resolution:     string(cs.Resolution),
		IsHumanManaged: cs.IsHumanManaged,
	})
}

// HandleEndSession drops the chat session.
// DELETE /api/v1/chat/session
func (h *ChatHandler) HandleEndSession(c *gin.Context) {
	token := c.GetHeader(sessionHeader)
	if token == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.sessions.Drop(c.Request.Context(), token); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) resolveSession(c *gin.Context) (uuid.UUID, bool) {
	caseID, err := h.sessions.Resolve(c.Request.Context(), c.GetHeader(sessionHeader))
	if err != nil {
		httpkit.HandleError(c, err)
		return uuid.Nil, false
	}
	return caseID, true
}
