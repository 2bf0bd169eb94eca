package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementAuthStats holds one row per stats publish.
const measurementAuthStats = "auth_stats"

// WriteAuthStats records an auth counters snapshot tagged with the site,
// stamped with the snapshot time ts (now when zero).
// The write is batched and non-blocking.
func (c *Client) WriteAuthStats(siteID string, fields map[string]any, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	c.WritePointWithTime(measurementAuthStats, map[string]string{"site_id": siteID}, fields, ts)
}

// WritePointWithTime writes a point with explicit tags, fields and timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
