package feed

import (
	"fmt"
	"testing"

	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

func TestRecent(t *testing.T) {
	r := NewRecent(3)
	for i := 0; i < 5; i++ {
		date := "2024-05-01"
		if i == 4 {
			date = "2024-05-02"
		}
		r.Add(events.AlertRaised{AlertID: fmt.Sprint(i), ObservedDate: date})
	}

	all := r.List("")
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].AlertID != "4" || all[2].AlertID != "2" {
		t.Errorf("order = %s..%s, want newest first", all[0].AlertID, all[2].AlertID)
	}

	day := r.List("2024-05-01")
	if len(day) != 2 {
		t.Errorf("List(date) = %d, want 2", len(day))
	}
}
