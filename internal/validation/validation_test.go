package validation

import (
	"errors"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid uuid-shaped key", key: "0f2fb376-77e4-4b81-9be0-5a81e2a3c7d0", wantErr: nil},
		{name: "empty", key: "", wantErr: ErrAPIKeyEmpty},
		{name: "whitespace only", key: "   ", wantErr: ErrAPIKeyEmpty},
		{name: "too short", key: "abc123", wantErr: ErrAPIKeyTooShort},
		{name: "embedded space", key: "0f2fb376 77e4 4b81 9be0 5a81e2a3c7d0", wantErr: ErrAPIKeyInvalidChars},
		{name: "embedded tab", key: "0f2fb376-77e4\t4b81-9be0-5a81e2a3c7d0", wantErr: ErrAPIKeyInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateAPIKey(%q) unexpected error: %v", tt.key, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAPIKey(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "moscow", lat: 55.75396, lon: 37.620393, wantErr: false},
		{name: "poles", lat: 90, lon: -180, wantErr: false},
		{name: "zero zero", lat: 0, lon: 0, wantErr: false},
		{name: "latitude too high", lat: 90.1, lon: 0, wantErr: true},
		{name: "latitude too low", lat: -91, lon: 0, wantErr: true},
		{name: "longitude too high", lat: 0, lon: 180.5, wantErr: true},
		{name: "longitude too low", lat: 0, lon: -181, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}
