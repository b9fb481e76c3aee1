package memory

import (
	"github.com/julianstephens/fleetboard/internal/models"
)

// Demo account passwords; the development server only
const (
	AdminPassword      = "admin"
	DispatcherPassword = "dispatch"
	ViewerPassword     = "viewer"
)

func strp(s string) *string { return &s }

// Seed returns a service holding a small demo fleet: three customers, three
// tankers (one in maintenance), four drivers (one inactive), trip groups on
// Saturday, Tuesday and Wednesday, and one account per role.
func Seed(secret []byte) *Service {
	s := New(secret)

	for _, c := range []models.CustomerRef{
		{ID: 1, Code: "ENOC-101", Name: "Marina Towers"},
		{ID: 2, Code: "ADNOC-7", Name: "Jebel Ali Depot"},
		{ID: 3, Code: "EMR-12", Name: "Al Quoz Yard"},
	} {
		s.AddCustomer(c)
	}

	ulg := models.FuelBlendRef{ID: 1, Code: "ULG95"}
	dsl := models.FuelBlendRef{ID: 2, Code: "DSL"}
	s.AddFuelBlend(ulg)
	s.AddFuelBlend(dsl)

	s.AddTanker(models.Tanker{ID: 1, Name: "T-01", Registration: strp("DXB 40211"), MaxCapacity: 20000,
		DeliveryType: "bulk", Status: models.TankerActive, FuelBlends: []models.FuelBlendRef{ulg, dsl}, IsActive: true})
	s.AddTanker(models.Tanker{ID: 2, Name: "T-02", Registration: strp("DXB 40212"), MaxCapacity: 12000,
		DeliveryType: "mobile", Status: models.TankerActive, FuelBlends: []models.FuelBlendRef{dsl}, IsActive: true})
	s.AddTanker(models.Tanker{ID: 3, Name: "T-03", Registration: strp("SHJ 1187"), MaxCapacity: 15000,
		DeliveryType: "bulk", Status: models.TankerMaintenance, FuelBlends: []models.FuelBlendRef{ulg}, IsActive: true})

	s.AddDriver(models.Driver{ID: 17, Name: "Omar Haddad", EmployeeID: strp("E-017"), DriverType: "internal", IsActive: true})
	s.AddDriver(models.Driver{ID: 18, Name: "Bilal Khan", EmployeeID: strp("E-018"), DriverType: "internal", IsActive: true})
	s.AddDriver(models.Driver{ID: 19, Name: "Sami Noor", DriverType: "3pl", IsActive: true})
	s.AddDriver(models.Driver{ID: 20, Name: "Yusuf Ali", EmployeeID: strp("E-020"), DriverType: "internal", IsActive: false})

	s.AddGroup(GroupTemplate{
		TripGroupRef: models.TripGroupRef{ID: 1, Name: "Tuesday North", DayOfWeek: 3, Description: strp("Marina and Jebel Ali")},
		Templates: []TripTemplate{
			{ID: 100, CustomerID: 1, TankerID: 1, FuelBlendID: 1, StartTime: "08:00", EndTime: "10:00", Volume: 6000},
			{ID: 101, CustomerID: 2, TankerID: 1, FuelBlendID: 2, StartTime: "11:00", EndTime: "13:00", Volume: 8000, NeedsReturn: true},
		},
	})
	s.AddGroup(GroupTemplate{
		TripGroupRef: models.TripGroupRef{ID: 2, Name: "Tuesday South", DayOfWeek: 3},
		Templates: []TripTemplate{
			{ID: 200, CustomerID: 3, TankerID: 2, FuelBlendID: 2, StartTime: "09:00", EndTime: "11:30", Volume: 5000, IsMobileOp: true},
			{ID: 201, CustomerID: 1, TankerID: 3, FuelBlendID: 1, StartTime: "13:00", EndTime: "14:00", Volume: 3000},
		},
	})
	s.AddGroup(GroupTemplate{
		TripGroupRef: models.TripGroupRef{ID: 3, Name: "Wednesday Loop", DayOfWeek: 4},
		Templates: []TripTemplate{
			{ID: 300, CustomerID: 2, TankerID: 1, FuelBlendID: 2, StartTime: "07:00", EndTime: "09:00", Volume: 4000},
		},
	})
	s.AddGroup(GroupTemplate{
		TripGroupRef: models.TripGroupRef{ID: 4, Name: "Weekend Top-up", DayOfWeek: 0},
		Templates: []TripTemplate{
			{ID: 400, CustomerID: 1, TankerID: 2, FuelBlendID: 2, StartTime: "06:30", EndTime: "07:30", Volume: 2000},
		},
	})

	// Hashing at MinCost cannot fail for these inputs
	_ = s.AddUser(models.User{ID: 1, Username: "admin", Email: "admin@fleet.local", Role: models.RoleAdmin}, AdminPassword)
	_ = s.AddUser(models.User{ID: 2, Username: "dispatch", Email: "dispatch@fleet.local", Role: models.RoleDispatcher}, DispatcherPassword)
	_ = s.AddUser(models.User{ID: 3, Username: "viewer", Email: "viewer@fleet.local", Role: models.RoleViewer}, ViewerPassword)

	return s
}
