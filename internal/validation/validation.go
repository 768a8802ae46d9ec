package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrAPIKeyEmpty is returned when the API key is empty or whitespace-only.
var ErrAPIKeyEmpty = errors.New("API key is required")

// ErrAPIKeyTooShort is returned when the API key is implausibly short.
var ErrAPIKeyTooShort = errors.New("API key appears invalid (too short)")

// ErrAPIKeyInvalidChars is returned when the API key contains whitespace or control characters.
var ErrAPIKeyInvalidChars = errors.New("API key contains invalid characters")

// ValidateAPIKey checks the credential for obvious misconfiguration before any
// network call is made. Yandex.Weather keys are UUID-shaped; anything shorter
// than 16 characters is rejected outright.
func ValidateAPIKey(key string) error {
	s := strings.TrimSpace(key)
	if s == "" {
		return ErrAPIKeyEmpty
	}
	if len(s) < 16 {
		return ErrAPIKeyTooShort
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrAPIKeyInvalidChars
		}
	}
	return nil
}

// ValidateCoordinates checks latitude and longitude bounds.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}
