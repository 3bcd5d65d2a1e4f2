package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

func GenerateSessionToken() uuid.UUID {
	return uuid.New()
}

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

const orderCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderCode returns a human-readable booking reference.
// Format: TRB-YYYYMMDD-XXXXXX
func GenerateOrderCode(now time.Time) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(orderCodeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(now.UnixNano() % max.Int64())
		}
		suffix[i] = orderCodeAlphabet[n.Int64()]
	}

	return fmt.Sprintf("TRB-%s-%s", now.Format("20060102"), suffix)
}
