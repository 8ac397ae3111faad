package validation

import (
	"testing"
	"time"
)

func TestValidateWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		wantErr bool
	}{
		{"valid minimum", 1, false},
		{"valid middle", 10, false},
		{"valid maximum", 20, false},
		{"too low", 0, true},
		{"negative", -1, true},
		{"too high", 21, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWorkerCount(tt.workers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWorkerCount(%d) error = %v, wantErr %v", tt.workers, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonEmptyString(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		value     string
		wantErr   bool
	}{
		{"valid string", "provider.url", "http://localhost", false},
		{"empty string", "provider.url", "", true},
		{"whitespace only", "provider.url", " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonEmptyString(tt.fieldName, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonEmptyString(%q, %q) error = %v, wantErr %v", tt.fieldName, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStoreDriver(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"sqlite", false},
		{"mongodb", false},
		{"postgres", true},
		{"", true},
		{"SQLite", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			err := ValidateStoreDriver(tt.driver)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStoreDriver(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSignOutPolicy(t *testing.T) {
	tests := []struct {
		policy  string
		wantErr bool
	}{
		{"", false},
		{"retain", false},
		{"delete", false},
		{"purge", true},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			err := ValidateSignOutPolicy(tt.policy)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignOutPolicy(%q) error = %v, wantErr %v", tt.policy, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https", "https://auth.example.com", false},
		{"http with port", "http://localhost:9999/auth/v1", false},
		{"relative", "/auth/v1", true},
		{"no scheme", "auth.example.com", true},
		{"ftp", "ftp://example.com", true},
		{"empty", "", true},
		{"bad escape", "http://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL("provider.url", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration("store.timeout", time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePositiveDuration("store.timeout", 0); err == nil {
		t.Error("expected error for zero duration")
	}
}
