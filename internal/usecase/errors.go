package usecase

import (
	"errors"

	"go.uber.org/zap"
)

// Business rejections. They are expected outcomes, wrapped with context and
// matched with errors.Is by the adaptor layer.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrDepartureNotBookable = errors.New("departure is not bookable")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrBookingNotPayable    = errors.New("booking is not payable")
	ErrAlreadyPaid          = errors.New("booking already paid")
	ErrAlreadySettled       = errors.New("payment already settled")
	ErrNoCompletedPayment   = errors.New("booking has no completed payment")
	ErrAlreadyRefunded      = errors.New("refund already requested")
	ErrRefundAmountExceeded = errors.New("refund amount exceeds payment")
	ErrAlreadyDecided       = errors.New("refund already decided")
	ErrDepartureHasBookings = errors.New("departure has active bookings")
	ErrOpenDatedExists      = errors.New("tour already has an open-dated departure")
	ErrVoucherUnavailable   = errors.New("voucher unavailable")
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrSessionNotFound      = errors.New("session not found")
)

var businessErrors = []error{
	ErrValidation, ErrNotFound, ErrForbidden, ErrCapacityExceeded, ErrInsufficientCapacity,
	ErrDepartureNotBookable, ErrInvalidTransition, ErrBookingNotPayable, ErrAlreadyPaid,
	ErrAlreadySettled, ErrNoCompletedPayment, ErrAlreadyRefunded, ErrRefundAmountExceeded,
	ErrAlreadyDecided, ErrDepartureHasBookings, ErrOpenDatedExists, ErrVoucherUnavailable, ErrDuplicateAccount,
	ErrInvalidCredentials, ErrAccountDisabled, ErrSessionNotFound,
}

// IsBusinessError reports whether err is an expected rejection rather than a failure.
func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// logRejection logs business rejections at Warn and everything else at Error.
func logRejection(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if IsBusinessError(err) {
		log.Warn(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}
