package mode

import (
	"strconv"
	"strings"

	"controltower/internal/events"
	"controltower/internal/index"
)

// HeaderName carries the per-request simulation flag
const HeaderName = "X-Simulation-Mode"

// DataSource is the pair of adapters one request works against
type DataSource struct {
	Index     index.Backend
	Events    events.Store
	Simulated bool
}

// Selector hands out live or fixture adapters per request.
// Adapters are built once at startup; Select never allocates.
type Selector struct {
	live DataSource
	sim  DataSource
}

// NewSelector creates a selector over the configured live adapters and the fixtures
func NewSelector(liveIndex index.Backend, liveEvents events.Store, fixtureIndex index.Backend, fixtureEvents events.Store) *Selector {
	return &Selector{
		live: DataSource{Index: liveIndex, Events: liveEvents},
		sim:  DataSource{Index: fixtureIndex, Events: fixtureEvents, Simulated: true},
	}
}

// NewDefaultSelector uses the built-in fixtures for simulation
func NewDefaultSelector(liveIndex index.Backend, liveEvents events.Store) *Selector {
	return NewSelector(liveIndex, liveEvents, index.NewFixtureBackend(nil), events.NewFixtureStore())
}

// Select returns the fixture data source when simulation is set, the live one otherwise
func (s *Selector) Select(simulation bool) DataSource {
	if simulation {
		return s.sim
	}
	return s.live
}

// FromHeader parses the simulation header. Absent or malformed values mean live mode.
func FromHeader(value string) bool {
	on, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return on
}
