package cache

import (
	"time"

	"github.com/julianstephens/fleetboard/internal/constants"
)

// Root tags of the Schedule Service resources
const (
	RootDrivers     = "drivers"
	RootTankers     = "tankers"
	RootTripGroups  = "trip-groups"
	RootMe          = "me"
	RootSchedule    = "schedule"
	RootAlerts      = "alerts"
	RootTrip        = "trip"
	RootDriverDays  = "driver-days"
	RootAssignments = "assignments"
)

// Policies maps a root tag to how long its entries stay fresh. A zero window
// means every read refetches; roots missing from the map are always stale.
type Policies map[string]time.Duration

// DefaultPolicies returns the staleness windows for the Schedule Service resources.
func DefaultPolicies() Policies {
	return Policies{
		RootDrivers:     constants.ReferenceStaleAfter,
		RootTankers:     constants.ReferenceStaleAfter,
		RootTripGroups:  constants.ReferenceStaleAfter,
		RootMe:          constants.ReferenceStaleAfter,
		RootSchedule:    constants.SummaryStaleAfter,
		RootAlerts:      constants.SummaryStaleAfter,
		RootTrip:        constants.ResourceStaleAfter,
		RootDriverDays:  constants.ResourceStaleAfter,
		RootAssignments: constants.ResourceStaleAfter,
	}
}

// StaleAfter returns the freshness window for a key
func (p Policies) StaleAfter(k Key) time.Duration {
	return p[k.Root()]
}

// With returns a copy of p with root's window replaced
func (p Policies) With(root string, d time.Duration) Policies {
	out := make(Policies, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[root] = d
	return out
}
