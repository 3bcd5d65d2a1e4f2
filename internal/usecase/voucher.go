package usecase

import (
	"fmt"

	"tour-booking/internal/data/entity"

	"github.com/skip2/go-qrcode"
)

const voucherSize = 256

// voucherPayload is what the QR code carries; a scanner resolves the booking from it.
func voucherPayload(b *entity.Booking) string {
	return fmt.Sprintf("TOUR-BOOKING|%s|%s|%d", b.OrderCode, b.ID, b.Participants)
}

// RenderVoucher encodes the booking's voucher as a PNG QR code.
func RenderVoucher(b *entity.Booking) ([]byte, error) {
	png, err := qrcode.Encode(voucherPayload(b), qrcode.Medium, voucherSize)
	if err != nil {
		return nil, fmt.Errorf("render voucher %s: %w", b.ID, err)
	}
	return png, nil
}
