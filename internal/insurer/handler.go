package insurer

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claims_intake_backend/platform/httpkit"
	"claims_intake_backend/platform/validator"
)

// Handler receives insurer-side callbacks. There is no insurer portal
// integration; a human operator (or a mail automation) posts the offer when
// the insurer answers, authenticated by a shared secret.
type Handler struct {
	service *Service
	secret  string
	val     *validator.Validator
}

func NewHandler(service *Service, secret string, val *validator.Validator) *Handler {
	return &Handler{service: service, secret: secret, val: val}
}

// OfferRequest records the insurer's settlement offer for a case.
type OfferRequest struct {
	CaseID     uuid.UUID `json:"caseId" validate:"required"`
	OfferCents int64     `json:"offerCents" validate:"required,gt=0"`
}

// HandleOffer records an offer and kicks the conversation forward.
// POST /api/v1/insurer/offers
func (h *Handler) HandleOffer(c *gin.Context) {
	if !h.authenticated(c) {
		httpkit.Error(c, http.StatusUnauthorized, "invalid event secret", nil)
		return
	}

	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	if err := h.service.RecordOffer(c.Request.Context(), req.CaseID, req.OfferCents); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// HandleResubmit re-sends the claim email for a case, for operators recovering
// from a bounced or lost submission.
// POST /api/v1/insurer/resubmit/:caseId
func (h *Handler) HandleResubmit(c *gin.Context) {
	if !h.authenticated(c) {
		httpkit.Error(c, http.StatusUnauthorized, "invalid event secret", nil)
		return
	}

	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid case ID", nil)
		return
	}

	if err := h.service.SubmitClaim(c.Request.Context(), caseID); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (h *Handler) authenticated(c *gin.Context) bool {
	if h.secret == "" {
		return false
	}
	got := c.GetHeader("X-Event-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
