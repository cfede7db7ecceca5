package config

import (
	"errors"
	"fmt"
)

// Validate checks cross-field constraints cleanenv tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 characters")
	}
	if c.Engine.DefaultPageLimit <= 0 {
		return errors.New("engine.default_page_limit must be positive")
	}
	if c.Engine.MaxPageLimit < c.Engine.DefaultPageLimit {
		return errors.New("engine.max_page_limit cannot be below default_page_limit")
	}
	if c.Engine.ProcessorTimeout <= 0 {
		return errors.New("engine.processor_timeout must be positive")
	}
	if c.Engine.AuditQueueSize <= 0 {
		return errors.New("engine.audit_queue_size must be positive")
	}
	return nil
}
