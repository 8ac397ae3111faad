package validation

import (
	"fmt"
	"net/url"
	"time"
)

const (
	MinWorkers = 1
	MaxWorkers = 20
)

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func ValidateStoreDriver(driver string) error {
	switch driver {
	case "sqlite", "mongodb":
		return nil
	}
	return fmt.Errorf("invalid store driver: %s (must be one of: sqlite, mongodb)", driver)
}

func ValidateSignOutPolicy(policy string) error {
	switch policy {
	case "", "retain", "delete":
		return nil
	}
	return fmt.Errorf("invalid sign-out policy: %s (must be one of: retain, delete)", policy)
}

// ValidateURL requires an absolute http or https URL.
func ValidateURL(fieldName, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", fieldName, raw)
	}
	return nil
}

func ValidatePositiveDuration(fieldName string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", fieldName, d)
	}
	return nil
}
