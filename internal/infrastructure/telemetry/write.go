package telemetry

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/amparo-saude/amparo-core/internal/event"
)

// WriteFallEvent records an ingested fall event as a measurement
// point. Non-blocking; the point is batched and sent asynchronously.
func (c *Client) WriteFallEvent(e *event.FallEvent) {
	p := influxdb2.NewPoint("fall_events",
		map[string]string{
			"dispositivo_id": e.DispositivoID,
			"assistido_id":   e.AssistidoID,
			"event_type":     e.EventType,
		},
		map[string]interface{}{
			"eixo_x":   e.EixoX,
			"eixo_y":   e.EixoY,
			"eixo_z":   e.EixoZ,
			"totalacc": e.TotalAcc,
		},
		e.OccurredAt,
	)
	c.writeAPI.WritePoint(p)
}

// WriteHeartbeat records a device liveness signal.
func (c *Client) WriteHeartbeat(deviceID string, at time.Time) {
	p := influxdb2.NewPoint("heartbeats",
		map[string]string{"dispositivo_id": deviceID},
		map[string]interface{}{"alive": true},
		at,
	)
	c.writeAPI.WritePoint(p)
}
