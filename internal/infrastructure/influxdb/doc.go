// Package influxdb writes back-office auth statistics to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library: token auth, a
// non-blocking batched write API and a ping-based health check. Writes
// on a disconnected or closed client are dropped silently; async write
// failures are reported through SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
//
//	client.WriteAuthStats("store-001", map[string]any{"logins_ok": 12}, time.Now())
package influxdb
