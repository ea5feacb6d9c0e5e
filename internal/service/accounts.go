package service

import (
	"fmt"
	"strings"
)

// AccountKeys maps CRM account ids to their API keys
type AccountKeys map[string]string

// Lookup returns the key of an account or ErrMissingAPIKey
func (k AccountKeys) Lookup(accountID string) (string, error) {
	key := strings.TrimSpace(k[accountID])
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, accountID)
	}
	return key, nil
}
