package mandate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claims_intake_backend/platform/httpkit"
	"claims_intake_backend/platform/validator"
)

// Handler exposes the mandate signing endpoints consumed by the signing page.
type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// StatusResponse is the signing page's view of a case.
type StatusResponse struct {
	CaseID     uuid.UUID `json:"caseId"`
	Stage      string    `json:"stage"`
	Signed     bool      `json:"signed"`
	Signable   bool      `json:"signable"`
	Resolution string    `json:"resolution"`
}

// HandleGetStatus returns the signing state for a case.
// GET /api/v1/mandate/:caseId
func (h *Handler) HandleGetStatus(c *gin.Context) {
	caseID, ok := h.parseCaseID(c)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), caseID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, StatusResponse{
		CaseID:     status.CaseID,
		Stage:      string(status.Stage),
		Signed:     status.Signed,
		Signable:   status.Signable,
		Resolution: string(status.Resolution),
	})
}

// SignRequest carries the claimant's typed confirmation.
type SignRequest struct {
	SignerName string `json:"signerName" validate:"required,min=3,max=120"`
	Consent    bool   `json:"consent" validate:"required"`
}

// HandleSign records the mandate signature.
// POST /api/v1/mandate/:caseId/sign
func (h *Handler) HandleSign(c *gin.Context) {
	caseID, ok := h.parseCaseID(c)
	if !ok {
		return
	}

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	if err := h.service.Sign(c.Request.Context(), caseID, req.SignerName); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed"})
}

func (h *Handler) parseCaseID(c *gin.Context) (uuid.UUID, bool) {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid case ID", nil)
		return uuid.UUID{}, false
	}
	return caseID, true
}
