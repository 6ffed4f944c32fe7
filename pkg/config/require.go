package config

import (
	"fmt"
	"strings"
)

// Validate reports every required setting that is missing.
func (c Config) Validate() error {
	var missing []string
	if len(c.JWTAccessSecret) == 0 {
		missing = append(missing, "JWT_SECRET")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.OrderAPIURL == "" {
		missing = append(missing, "ORDER_API_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env %s", strings.Join(missing, ", "))
	}
	return nil
}
