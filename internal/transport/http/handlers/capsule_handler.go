package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
	"github.com/vedran77/kapsula/internal/service"
	"github.com/vedran77/kapsula/internal/transport/http/middleware"
	"github.com/vedran77/kapsula/pkg/validator"
)

type CapsuleHandler struct {
	capsuleService *service.CapsuleService
}

func NewCapsuleHandler(capsuleService *service.CapsuleService) *CapsuleHandler {
	return &CapsuleHandler{capsuleService: capsuleService}
}

func (h *CapsuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateCapsuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateCapsule(input.Title); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	c, err := h.capsuleService.Create(r.Context(), userID, input)
	if err != nil {
		log.Printf("ERROR create capsule: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *CapsuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	c, err := h.capsuleService.Get(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "get capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var (
		capsules []domain.Capsule
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		capsules, err = h.capsuleService.ListByStatus(r.Context(), userID, domain.CapsuleStatus(status))
	} else {
		capsules, err = h.capsuleService.ListAccessible(r.Context(), userID)
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown capsule status")
			return
		}
		log.Printf("ERROR list capsules: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, capsules)
}

func (h *CapsuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	var input service.UpdateCapsuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if input.Title != nil {
		if errs := validator.ValidateCapsule(*input.Title); errs.HasErrors() {
			writeValidationErrors(w, errs)
			return
		}
	}

	c, err := h.capsuleService.UpdateMetadata(r.Context(), userID, capsuleID, input)
	if err != nil {
		writeCapsuleError(w, "update capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Lock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	var body struct {
		OpenDate string `json:"open_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	openDate, errs := validator.ValidateOpenDate(body.OpenDate)
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	c, err := h.capsuleService.Lock(r.Context(), userID, capsuleID, openDate)
	if err != nil {
		writeCapsuleError(w, "lock capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	c, err := h.capsuleService.Unlock(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "unlock capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	c, err := h.capsuleService.Publish(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "publish capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	c, err := h.capsuleService.Archive(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "archive capsule", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	if err := h.capsuleService.Delete(r.Context(), userID, capsuleID); err != nil {
		writeCapsuleError(w, "delete capsule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CapsuleHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	remaining, err := h.capsuleService.TimeUntilOpen(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "capsule countdown", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seconds_remaining": int64(remaining.Seconds()),
		"open":              remaining <= 0,
	})
}

func (h *CapsuleHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	grants, err := h.capsuleService.ListGrants(r.Context(), userID, capsuleID)
	if err != nil {
		writeCapsuleError(w, "list grants", err)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

func (h *CapsuleHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	var body struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	granteeID, err := uuid.Parse(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	grant, err := h.capsuleService.GrantAccess(r.Context(), userID, capsuleID, granteeID, domain.GrantRole(body.Role))
	if err != nil {
		writeCapsuleError(w, "grant access", err)
		return
	}

	writeJSON(w, http.StatusCreated, grant)
}

func (h *CapsuleHandler) GrantAccessToAllFriends(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	grants, err := h.capsuleService.GrantAccessToAllFriends(r.Context(), userID, capsuleID, domain.GrantRole(body.Role))
	if err != nil {
		writeCapsuleError(w, "grant access to friends", err)
		return
	}

	writeJSON(w, http.StatusCreated, grants)
}

func (h *CapsuleHandler) UpdateAccessRole(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	granteeID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	grant, err := h.capsuleService.UpdateAccessRole(r.Context(), userID, capsuleID, granteeID, domain.GrantRole(body.Role))
	if err != nil {
		writeCapsuleError(w, "update access role", err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

func (h *CapsuleHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	capsuleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid capsule ID")
		return
	}

	granteeID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.capsuleService.RevokeAccess(r.Context(), userID, capsuleID, granteeID); err != nil {
		writeCapsuleError(w, "revoke access", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCapsuleError maps lifecycle service errors onto HTTP responses.
func writeCapsuleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrCapsuleNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Capsule not found")
	case errors.Is(err, service.ErrGrantNotFound):
		writeError(w, http.StatusNotFound, "GRANT_NOT_FOUND", "Access grant not found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_STATE", "Operation not allowed in the capsule's current status")
	case errors.Is(err, service.ErrStillLocked):
		writeError(w, http.StatusConflict, "STILL_LOCKED", "Capsule is locked until its open date")
	case errors.Is(err, service.ErrOpenDateNotFuture):
		writeError(w, http.StatusBadRequest, "OPEN_DATE_PAST", "Open date must be in the future")
	case errors.Is(err, service.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be EDITOR or VIEWER")
	case errors.Is(err, service.ErrGrantOwner):
		writeError(w, http.StatusBadRequest, "GRANT_OWNER", "The owner already has full access")
	case errors.Is(err, service.ErrAlreadyGranted):
		writeError(w, http.StatusConflict, "ALREADY_GRANTED", "User already has access to this capsule")
	default:
		log.Printf("ERROR %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
