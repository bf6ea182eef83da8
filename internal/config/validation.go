package config

import "fmt"

var validSSLModes = map[string]struct{}{
	"disable": {}, "allow": {}, "prefer": {},
	"require": {}, "verify-ca": {}, "verify-full": {},
}

// Validate checks the snapshot for structural problems. Vendor
// credential completeness is checked at resolution time so a missing
// OpenAI key only fails requests that actually resolve to OpenAI.
func (c *Config) Validate() error {
	switch c.DefaultVendor {
	case VendorOllama, VendorOpenAI, VendorAnthropic:
	default:
		return fmt.Errorf("%w: %q (must be ollama, openai or anthropic)", ErrInvalidVendor, c.DefaultVendor)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host is empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_dbname is empty", ErrInvalidPostgres)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: postgres_sslmode %q", ErrInvalidPostgres, c.PostgresSSLMode)
	}

	for name, d := range map[string]int64{
		"chat_timeout":     int64(c.ChatTimeout),
		"embed_timeout":    int64(c.EmbedTimeout),
		"assembly_timeout": int64(c.AssemblyTimeout),
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidTimeout, name)
		}
	}

	return nil
}
