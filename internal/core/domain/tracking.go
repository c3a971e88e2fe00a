package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Tracking codes are structured, not random: {orderID}-L{sequence}-{check}.
// Any service can validate and resolve a code without a lookup.
//
//	ORD7F3A9C21-L02-M
//	└── order ──┘ └seq┘ └ check character over everything before it
const (
	sequenceMarker = "-L"
	checkAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortOrderLen  = 8
	maxOrderIDLen  = 64
)

// ValidOrderID reports whether id can be embedded in a tracking code.
func ValidOrderID(id string) bool {
	if id == "" || len(id) > maxOrderIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// IssueTrackingCode derives the tracking code of the leg at sequence within orderID.
func IssueTrackingCode(orderID string, sequence int) (string, error) {
	if !ValidOrderID(orderID) {
		return "", fmt.Errorf("%w: order id %q cannot be encoded", ErrInvalidRoute, orderID)
	}
	if sequence < 1 || sequence > MaxLegs {
		return "", fmt.Errorf("%w: sequence %d out of range", ErrInvalidRoute, sequence)
	}
	body := fmt.Sprintf("%s%s%02d", orderID, sequenceMarker, sequence)
	return body + "-" + string(checkChar(body)), nil
}

// ResolveTrackingCode is the exact inverse of IssueTrackingCode. Codes that
// are malformed, carry a bad check character, or are not in canonical form
// fail with ErrCodeNotFound.
func ResolveTrackingCode(code string) (orderID string, sequence int, err error) {
	code = strings.TrimSpace(code)
	dash := strings.LastIndexByte(code, '-')
	if dash < 0 || dash != len(code)-2 {
		return "", 0, fmt.Errorf("%w: %q is malformed", ErrCodeNotFound, code)
	}
	body := code[:dash]

	marker := strings.LastIndex(body, sequenceMarker)
	if marker <= 0 {
		return "", 0, fmt.Errorf("%w: %q has no sequence", ErrCodeNotFound, code)
	}
	orderID = body[:marker]
	sequence, convErr := strconv.Atoi(body[marker+len(sequenceMarker):])
	if convErr != nil {
		return "", 0, fmt.Errorf("%w: %q has a bad sequence", ErrCodeNotFound, code)
	}

	canonical, issueErr := IssueTrackingCode(orderID, sequence)
	if issueErr != nil || canonical != code {
		return "", 0, fmt.Errorf("%w: %q failed validation", ErrCodeNotFound, code)
	}
	return orderID, sequence, nil
}

// ShortForm returns the human-scannable suffix printed on QR labels, e.g.
// "7F3A9C21-02". It is a convenience key only: two orders whose ids share a
// suffix produce the same short form, so lookups by it may be ambiguous.
func ShortForm(code string) (string, error) {
	orderID, sequence, err := ResolveTrackingCode(code)
	if err != nil {
		return "", err
	}
	compact := strings.ToUpper(strings.NewReplacer("-", "", "_", "").Replace(orderID))
	if len(compact) > shortOrderLen {
		compact = compact[len(compact)-shortOrderLen:]
	}
	return fmt.Sprintf("%s-%02d", compact, sequence), nil
}

// checkChar is a position-weighted mod-36 checksum; it catches single
// character substitutions and most adjacent swaps from manual entry.
func checkChar(body string) byte {
	sum := 0
	for i := 0; i < len(body); i++ {
		sum += (i + 1) * int(body[i])
	}
	return checkAlphabet[sum%len(checkAlphabet)]
}
