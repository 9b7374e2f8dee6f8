package dto

import (
	"encoding/json"
	"testing"

	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

func TestFlatten(t *testing.T) {
	back := 120.5
	groups := []events.RowGroup{
		{PostTime: "13:05", Rows: []events.DifferenceRow{
			{Venue: "ASC", PostTime: "13:05", Delta: -7.5, Horse: "Fast Eddie", Race: "1m Hcap", Back: &back, AlertTimestamp: "12:00:01"},
		}},
		{PostTime: "14:10", Rows: []events.DifferenceRow{
			{Venue: "YOR", PostTime: "14:10", Delta: -1, Horse: "Slow Sam", Race: "6f Mdn"},
			{Venue: "YOR", PostTime: "14:10", Delta: 2, Horse: "Blue Bolt", Race: "6f Mdn"},
		}},
	}

	rows := Flatten(groups)
	if len(rows) != 5 {
		t.Fatalf("len = %d, want 5", len(rows))
	}
	if rows[0] != separator() || rows[2] != separator() {
		t.Errorf("missing separators: %+v", rows)
	}
	if rows[1].Back != 120.5 || rows[1].Lay != "" {
		t.Errorf("row 1 = %+v", rows[1])
	}

	b, err := json.Marshal(rows[1])
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Venue":"ASC","Time":"13:05","Price":-7.5,"Horse":"Fast Eddie","Race":"1m Hcap","Back":120.5,"Lay":"","Update":"12:00:01"}`
	if string(b) != want {
		t.Errorf("json = %s\nwant   %s", b, want)
	}
}

func TestFlatten_Empty(t *testing.T) {
	b, _ := json.Marshal(Flatten(nil))
	if string(b) != "[]" {
		t.Errorf("got %s, want []", b)
	}
}
