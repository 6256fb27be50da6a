package models

// EndpointType defines the protocol used for testing an endpoint.
type EndpointType string

const (
	TypeHTTP EndpointType = "HTTP"
	TypeTCP  EndpointType = "TCP"
	TypeUDP  EndpointType = "UDP"
	TypeICMP EndpointType = "ICMP"
)

// Endpoint represents a single network target monitored by the application.
type Endpoint struct {
	Name    string       `json:"name"`
	Type    EndpointType `json:"type"`
	Address string       `json:"address"`
}

// Region groups endpoints geographically or logically.
type Region struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// Settings defines the application's global monitoring settings.
type Settings struct {
	TestIntervalSeconds  int  `json:"test_interval_seconds"`
	DataRetentionDays    int  `json:"data_retention_days"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Configuration is the aggregate returned by the host's GetConfig call.
type Configuration struct {
	Regions  map[string]Region `json:"regions"`
	Settings Settings          `json:"settings"`
}

// HistoryRecord is one historical check result. GetHistoryRange returns a
// slice of these; the field names match the application's wire format.
type HistoryRecord struct {
	Timestamp  int64  `json:"ts"`
	EndpointID string `json:"id"`
	LatencyMs  int64  `json:"ms"`
	Status     int    `json:"st"`
}
