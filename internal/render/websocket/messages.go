package websocket

import (
	"encoding/json"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/pkg/core"
)

// Message types understood by the map client.
const (
	TypeHello        = "hello"
	TypeClear        = "clear"
	TypeAddPrimitive = "add_primitive"
	TypeAck          = "ack"
)

// Envelope wraps every message sent over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the client's acknowledgement.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// HelloPayload introduces the sender to the map client.
type HelloPayload struct {
	Client string `json:"client"`
}

// PrimitivePayload is a primitive plus its EPSG:3857 projection, so tile-based
// clients can draw without reprojecting.
type PrimitivePayload struct {
	core.Primitive
	Points3857      []geo.WebMercator `json:"points3857,omitempty"`
	Center3857      *geo.WebMercator  `json:"center3857,omitempty"`
	Origin3857      *geo.WebMercator  `json:"origin3857,omitempty"`
	Destination3857 *geo.WebMercator  `json:"destination3857,omitempty"`
}

func newPrimitivePayload(p core.Primitive) PrimitivePayload {
	out := PrimitivePayload{Primitive: p}
	switch p.Kind {
	case core.KindPolyline:
		out.Points3857 = geo.ToWebMercatorAll(p.Points)
	case core.KindCircle:
		c := geo.ToWebMercator(p.Center)
		out.Center3857 = &c
	case core.KindPendingRoute:
		o, d := geo.ToWebMercator(p.Origin), geo.ToWebMercator(p.Destination)
		out.Origin3857, out.Destination3857 = &o, &d
	}
	return out
}
