// Package config loads and validates the back-office service configuration.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// BACKOFFICE_* environment variables. The environment profile
// (development, production, testing) picks the default session TTL when
// security.session.ttl is not set.
//
// Secrets such as the MQTT password, InfluxDB token and PostgreSQL DSN
// should come from the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	ttl := cfg.SessionTTL()
package config
