package models

import "time"

// PeerReport is one peer's gossiped load level, as handed to the peer
// registry by the network layer.
type PeerReport struct {
	PeerID     string    `json:"peer_id"`
	Level      uint32    `json:"level"`
	Cluster    bool      `json:"cluster"`
	ReportedAt time.Time `json:"reported_at"`
}

// LoadSample is a diagnostic snapshot of the tracker, persisted for
// after-the-fact analysis. The tracker never reads these back.
type LoadSample struct {
	ID         string    `json:"id"`
	NodeID     string    `json:"node_id"`
	Local      uint32    `json:"local"`
	Remote     uint32    `json:"remote"`
	Cluster    uint32    `json:"cluster"`
	LoadFactor uint32    `json:"load_factor"`
	LoadFee    uint64    `json:"load_fee"`
	SampledAt  time.Time `json:"sampled_at"`
}

// LevelEvent records one effective raise or lower of the local level.
type LevelEvent struct {
	ID         string    `json:"id"`
	NodeID     string    `json:"node_id"`
	Direction  string    `json:"direction"` // "raise" or "lower"
	FromLevel  uint32    `json:"from_level"`
	ToLevel    uint32    `json:"to_level"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event directions.
const (
	DirectionRaise = "raise"
	DirectionLower = "lower"
)
