// Package mqtt publishes back-office status and auth statistics to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publishing with QoS validation
//   - Last Will and Testament (LWT) so consumers see the service go offline
//
// Topics live under "backoffice/":
//
//	backoffice/system/status   online/offline, retained
//	backoffice/auth/stats      auth counters snapshot, retained
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) when the broker is off-host
//   - Payloads never carry usernames or tokens
package mqtt
