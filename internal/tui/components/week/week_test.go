package week

import (
	"strings"
	"testing"

	"github.com/julianstephens/fleetboard/internal/models"
)

func TestRender(t *testing.T) {
	notes := "covering leave"
	w := models.WeeklyAssignments{
		WeekStart: "2025-06-07",
		Assignments: []models.Assignment{
			{ID: 1, TripGroup: models.TripGroupRef{ID: 1, Name: "Tuesday North", DayOfWeek: 3}, Driver: models.DriverRef{ID: 17, Name: "Omar Haddad"}, Notes: &notes},
			{ID: 2, TripGroup: models.TripGroupRef{ID: 2, Name: "Tuesday South", DayOfWeek: 3}, Driver: models.DriverRef{ID: 18, Name: "Bilal Khan"}},
		},
		UnassignedGroups: []models.TripGroupRef{{ID: 3, Name: "Wednesday Loop", DayOfWeek: 4}},
		AvailableDrivers: []models.DriverRef{{ID: 19, Name: "Sami Noor"}},
	}
	out := Render(w)
	for _, want := range []string{
		"Week of 2025-06-07",
		"Tuesday North → Omar Haddad",
		"(covering leave)",
		"Tuesday South → Bilal Khan",
		"1 group(s) without a driver",
		"Wednesday Loop (Wednesday)",
		"Available: Sami Noor",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q", want)
		}
	}
	if strings.Index(out, "Saturday") > strings.Index(out, "Tuesday North") {
		t.Error("week should open on Saturday")
	}
}

func TestLoading(t *testing.T) {
	m := New(80, 20)
	if m.View() != "Loading…" {
		t.Errorf("View() = %q before load", m.View())
	}
	m.SetWeek(models.WeeklyAssignments{WeekStart: "2025-06-07"})
	if m.Week().WeekStart != "2025-06-07" {
		t.Error("SetWeek() did not keep the week")
	}
}
