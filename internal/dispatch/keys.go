package dispatch

import (
	"github.com/julianstephens/fleetboard/internal/cache"
)

// Cache keys of every resource the engine reads. Views retain these keys
// while they are on screen.

func ScheduleKey(date string) cache.Key { return cache.NewKey(cache.RootSchedule, date) }

func AlertsKey(date string) cache.Key { return cache.NewKey(cache.RootAlerts, date) }

func TripKey(id int64) cache.Key { return cache.NewKey(cache.RootTrip, id) }

func DriversKey() cache.Key { return cache.NewKey(cache.RootDrivers, "active") }

func MeKey() cache.Key { return cache.NewKey(cache.RootMe) }

// DriverDaysKey is below the driver's prefix, so one invalidation of
// driver-days/<id> covers every range read for that driver.
func DriverDaysKey(driverID int64, from, to string) cache.Key {
	return cache.NewKey(cache.RootDriverDays, driverID, from, to)
}

func AllDriverDaysKey(from, to string) cache.Key {
	return cache.NewKey(cache.RootDriverDays, "all", from, to)
}

func AssignmentsKey(week string) cache.Key { return cache.NewKey(cache.RootAssignments, week) }

func TankersKey(customerID int64, tripID *int64) cache.Key {
	if tripID == nil {
		return cache.NewKey(cache.RootTankers, customerID, "any")
	}
	return cache.NewKey(cache.RootTankers, customerID, *tripID)
}

func tripChanged(date string, id int64) []cache.Key {
	return []cache.Key{ScheduleKey(date), TripKey(id), AlertsKey(date)}
}

func driverDaysChanged(driverID int64) []cache.Key {
	return []cache.Key{
		cache.NewKey(cache.RootDriverDays, driverID),
		cache.NewKey(cache.RootDriverDays, "all"),
		cache.NewKey(cache.RootAlerts),
	}
}

// assignmentsChanged covers the week and every schedule, since a group's
// driver shows on each of its days
func assignmentsChanged(week string) []cache.Key {
	return []cache.Key{
		AssignmentsKey(week),
		cache.NewKey(cache.RootTripGroups),
		cache.NewKey(cache.RootSchedule),
	}
}
