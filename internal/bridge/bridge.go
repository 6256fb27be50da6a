// Package bridge builds the synthetic native-host API the frontend expects
// from its desktop shell. The mock returns fixed values only; it performs no
// real backend work and none of its operations can fail.
package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"frontcheck/internal/models"
)

// Mock is a stand-in for the native host bound to the frontend's global
// execution context. Its values are constant for the lifetime of one run.
type Mock struct {
	config   models.Configuration
	warnings []string

	mu            sync.Mutex
	registrations map[string]int
}

// NewMock returns a mock populated with the canonical verification fixture:
// one region holding one HTTP endpoint, default settings, and a single
// duplicate-endpoint warning for the frontend's warning banner to render.
func NewMock() *Mock {
	return &Mock{
		config: models.Configuration{
			Regions: map[string]models.Region{
				"Default": {
					Endpoints: []models.Endpoint{
						{Name: "EP1", Type: models.TypeHTTP, Address: "http://test.com"},
					},
				},
			},
			Settings: models.Settings{
				TestIntervalSeconds:  300,
				DataRetentionDays:    90,
				NotificationsEnabled: true,
			},
		},
		warnings: []string{
			"Duplicate endpoint ignored: EP2 (HTTP:http://test.com) in region Default",
		},
		registrations: make(map[string]int),
	}
}

// GetConfig returns the fixed configuration. It always succeeds.
func (m *Mock) GetConfig() models.Configuration {
	return m.config
}

// GetConfigWarnings returns the fixed warning list.
func (m *Mock) GetConfigWarnings() []string {
	return m.warnings
}

// GetHistoryRange returns an empty history regardless of the range asked
// for. Arguments are epoch milliseconds and are ignored.
func (m *Mock) GetHistoryRange(start, end int64) []models.HistoryRecord {
	return []models.HistoryRecord{}
}

// RemoveDuplicateEndpoints is the maintenance operation. The mock treats it
// as a no-op and returns the empty success marker without touching the
// configuration.
func (m *Mock) RemoveDuplicateEndpoints() string {
	return ""
}

// EventsOn accepts an event registration and never dispatches. The callback
// is dropped; only the registration itself is counted.
func (m *Mock) EventsOn(event string, _ func(payload any)) {
	m.mu.Lock()
	m.registrations[event]++
	m.mu.Unlock()
}

// Registrations reports how many callbacks were registered for event.
func (m *Mock) Registrations(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registrations[event]
}

const initScriptTemplate = `window.go = {
    main: {
        App: {
            GetConfig: async () => (%s),
            GetConfigWarnings: async () => (%s),
            GetHistoryRange: async (start, end) => ([]),
            RemoveDuplicateEndpoints: async () => ""
        }
    }
};
window.runtime = {
    EventsOn: (evt, cb) => {}
};`

// InitScript renders the page-initialization payload: a script installing
// window.go.main.App and window.runtime on the page's global context before
// any of the page's own code runs. Output is identical across calls on the
// same mock.
func (m *Mock) InitScript() (string, error) {
	configJSON, err := json.Marshal(m.config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	warningsJSON, err := json.Marshal(m.warnings)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	return fmt.Sprintf(initScriptTemplate, configJSON, warningsJSON), nil
}
