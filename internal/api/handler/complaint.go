package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hostelwatch/backend/internal/hashchain"
	"hostelwatch/backend/internal/ledger"
)

type partyRequest struct {
	VitID     string `json:"vit_id" binding:"required"`
	PartyRole string `json:"party_role" binding:"required"`
	IsPrimary bool   `json:"is_primary"`
	Notes     string `json:"notes"`
}

type createRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description" binding:"required"`
	Category    string         `json:"category" binding:"required"`
	Subcategory string         `json:"subcategory"`
	Severity    string         `json:"severity"`
	Location    string         `json:"location"`
	Parties     []partyRequest `json:"parties" binding:"required"`
}

type actionRequest struct {
	Status     string `json:"status"`
	Note       string `json:"note"`
	Reason     string `json:"reason"`
	TargetVit  string `json:"target_vit"`
	TargetRole string `json:"target_role"`
}

func actor(c *gin.Context) string {
	return c.GetString("vit_id")
}

// writeError maps ledger errors onto HTTP statuses. The taxonomy itself
// lives in the ledger; this is the only place it meets status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	case errors.Is(err, ledger.ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"ok": false, "error": "complaint is locked"})
	case errors.Is(err, ledger.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ledger.ErrTargetNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "assignment target not found"})
	case errors.Is(err, ledger.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "concurrent modification, retry"})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "complaint not found"})
	default:
		h.Logger.Error("ledger operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

// CreateComplaint files a new complaint and returns the one-time receipt.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	in := ledger.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Severity:    req.Severity,
		Location:    req.Location,
	}
	for _, p := range req.Parties {
		in.Parties = append(in.Parties, ledger.PartyInput{
			VitID:     p.VitID,
			PartyRole: p.PartyRole,
			IsPrimary: p.IsPrimary,
			Notes:     p.Notes,
		})
	}

	receipt, err := h.Ledger.Create(actor(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "receipt": receipt})
}

// GetComplaint returns the decrypt-on-read view of a complaint.
func (h *Handler) GetComplaint(c *gin.Context) {
	view, err := h.Ledger.ReadSecure(c.Param("id"), actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"complaint":        view.Complaint,
		"parties":          view.Parties,
		"description":      view.Description,
		"location":         view.Location,
		"redacted":         view.Redacted,
		"secret_available": view.SecretAvailable,
	})
}

// GetLogs returns the complaint's chain in order, notes redacted per the
// caller's grants.
func (h *Handler) GetLogs(c *gin.Context) {
	logs, err := h.Ledger.History(c.Param("id"), actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "logs": logs})
}

// VerifyChain recomputes the chain and reports integrity. A broken chain is
// surfaced explicitly, never masked as a generic failure.
func (h *Handler) VerifyChain(c *gin.Context) {
	err := h.Ledger.VerifyChain(c.Param("id"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "valid": true})
		return
	}
	var integrity *hashchain.IntegrityError
	if errors.As(err, &integrity) {
		c.JSON(http.StatusOK, gin.H{
			"ok":           true,
			"valid":        false,
			"broken_index": integrity.Index,
		})
		return
	}
	h.writeError(c, err)
}

// UpdateStatus requests a status transition.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "status is required"})
		return
	}
	rec, err := h.Ledger.Transition(c.Param("id"), actor(c), req.Status, req.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

func (h *Handler) Escalate(c *gin.Context) {
	var req actionRequest
	_ = c.ShouldBindJSON(&req)
	rec, err := h.Ledger.Escalate(c.Param("id"), actor(c), req.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

func (h *Handler) Assign(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetVit == "" || req.TargetRole == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "target_vit and target_role are required"})
		return
	}
	rec, err := h.Ledger.Assign(c.Param("id"), actor(c), req.TargetVit, req.TargetRole, req.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

func (h *Handler) Lock(c *gin.Context) {
	var req actionRequest
	_ = c.ShouldBindJSON(&req)
	rec, err := h.Ledger.Lock(c.Param("id"), actor(c), req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

func (h *Handler) Unlock(c *gin.Context) {
	var req actionRequest
	_ = c.ShouldBindJSON(&req)
	rec, err := h.Ledger.Unlock(c.Param("id"), actor(c), req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

func (h *Handler) Reopen(c *gin.Context) {
	var req actionRequest
	_ = c.ShouldBindJSON(&req)
	rec, err := h.Ledger.Reopen(c.Param("id"), actor(c), req.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "record": rec})
}

// VerifyReceipt lets a filer confirm the authenticity of their receipt code
// out of band. Public, rate-limited per caller and complaint.
func (h *Handler) VerifyReceipt(c *gin.Context) {
	id := c.Param("id")
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "code is required"})
		return
	}
	if !h.Storage.AllowVerifyAttempt(c.ClientIP(), id) {
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many attempts"})
		return
	}
	match, err := h.Ledger.VerifyReceipt(id, code)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "match": match})
}
