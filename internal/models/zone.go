package models

import "github.com/rdallagnolo/repo-fad-tracking/internal/spatial"

// Zone names
const (
	ZoneDeployment  = "deployment"
	ZoneOperational = "operational"
)

// Zone is a named closed polygon. Vertices keep the producer's order and
// the first vertex is repeated at the end.
type Zone struct {
	Name     string          `json:"name"`
	Source   string          `json:"source"`
	Vertices []spatial.Point `json:"vertices"`
}
