package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

// errorStatus maps service errors to HTTP status codes. The first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{repository.ErrTransient, http.StatusServiceUnavailable},
	{usecase.ErrValidation, http.StatusBadRequest},
	{usecase.ErrRefundAmountExceeded, http.StatusBadRequest},
	{usecase.ErrInvalidCredentials, http.StatusUnauthorized},
	{usecase.ErrSessionNotFound, http.StatusUnauthorized},
	{usecase.ErrForbidden, http.StatusForbidden},
	{usecase.ErrAccountDisabled, http.StatusForbidden},
	{usecase.ErrNotFound, http.StatusNotFound},
	{repository.ErrNotFound, http.StatusNotFound},
	{usecase.ErrCapacityExceeded, http.StatusConflict},
	{usecase.ErrInsufficientCapacity, http.StatusConflict},
	{usecase.ErrDepartureNotBookable, http.StatusConflict},
	{usecase.ErrInvalidTransition, http.StatusConflict},
	{usecase.ErrBookingNotPayable, http.StatusConflict},
	{usecase.ErrAlreadyPaid, http.StatusConflict},
	{usecase.ErrAlreadySettled, http.StatusConflict},
	{usecase.ErrNoCompletedPayment, http.StatusConflict},
	{usecase.ErrAlreadyRefunded, http.StatusConflict},
	{usecase.ErrAlreadyDecided, http.StatusConflict},
	{usecase.ErrDepartureHasBookings, http.StatusConflict},
	{usecase.ErrOpenDatedExists, http.StatusConflict},
	{usecase.ErrVoucherUnavailable, http.StatusConflict},
	{usecase.ErrDuplicateAccount, http.StatusConflict},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// handleServiceError writes the envelope for a failed service call. Client
// errors carry the error text; server errors do not.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	status := statusFor(err)

	switch {
	case status == http.StatusServiceUnavailable:
		log.Warn(operation+" failed - transient", zap.Error(err))
		w.Header().Set("Retry-After", "1")
		utils.ResponseServiceUnavailable(w, "Service busy, please retry")
	case status >= http.StatusInternalServerError:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	default:
		log.Debug(operation+" rejected", zap.Error(err), zap.Int("status", status))
		utils.ResponseJSON(w, status, false, err.Error(), nil, nil)
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct validator,
// answering 400 itself when either fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

// actorFrom returns the caller stored by the session middleware.
func actorFrom(w http.ResponseWriter, r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return usecase.Actor{UserID: userID, Role: entity.UserRole(role)}, true
}
