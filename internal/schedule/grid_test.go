package schedule

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMonthRangeLeapFebruary(t *testing.T) {
	tests := []struct {
		name      string
		weekStart time.Weekday
		first     string
		last      string
	}{
		{"sunday start", time.Sunday, "2024-01-28", "2024-03-02"},
		{"monday start", time.Monday, "2024-01-29", "2024-03-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MonthRange(at(2024, time.February, 14, 10, 0), time.UTC, tt.weekStart)
			if got := DayKey(r.First); got != tt.first {
				t.Errorf("First = %q, want %q", got, tt.first)
			}
			if got := DayKey(r.Last); got != tt.last {
				t.Errorf("Last = %q, want %q", got, tt.last)
			}
			if n := len(r.Days()); n != 35 {
				t.Errorf("len(Days) = %d, want 35", n)
			}
		})
	}
}

func TestMonthRangeCoversWholeWeeks(t *testing.T) {
	for _, ws := range []time.Weekday{time.Sunday, time.Monday, time.Saturday} {
		for year := 2023; year <= 2026; year++ {
			for month := time.January; month <= time.December; month++ {
				r := MonthRange(time.Date(year, month, 10, 0, 0, 0, 0, time.UTC), time.UTC, ws)
				days := r.Days()

				if len(days)%7 != 0 {
					t.Fatalf("%d-%02d: %d days, not whole weeks", year, month, len(days))
				}
				if days[0].Weekday() != ws {
					t.Errorf("%d-%02d: first weekday = %v, want %v", year, month, days[0].Weekday(), ws)
				}
				for i := 1; i < len(days); i++ {
					if !days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
						t.Fatalf("%d-%02d: gap between %s and %s", year, month, DayKey(days[i-1]), DayKey(days[i]))
					}
				}
				monthFirst := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
				if !r.Contains(monthFirst) || !r.Contains(monthFirst.AddDate(0, 1, -1)) {
					t.Errorf("%d-%02d: range %s..%s does not cover the month", year, month, DayKey(r.First), DayKey(r.Last))
				}
			}
		}
	}
}

func TestStartOfDayUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:30 UTC on the 16th is still the 15th in New York.
	got := StartOfDay(at(2024, time.March, 16, 2, 30), ny)
	if DayKey(got) != "2024-03-15" {
		t.Errorf("StartOfDay = %s, want 2024-03-15", DayKey(got))
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("StartOfDay = %v, want midnight", got)
	}
}

func TestBucketSortsAndFillsEveryDay(t *testing.T) {
	day := at(2024, time.March, 15, 0, 0)
	r := DateRange{First: day, Last: day.AddDate(0, 0, 2)}
	events := []CalendarEvent{
		{ID: 1, Kind: KindCRM, Time: "10:00", Date: day},
		{ID: 2, Kind: KindManual, Time: "10:00", Date: day},
		{ID: 3, Kind: KindTask, Time: "10:00", Date: day},
		{ID: 4, Kind: KindManual, Time: "08:15", Date: day},
		{ID: 5, Kind: KindTask, Time: "09:00", Date: day.AddDate(0, 0, 10)},
	}

	buckets := bucket(r, events)
	if len(buckets) != 3 {
		t.Fatalf("len(buckets) = %d, want 3", len(buckets))
	}
	if got := buckets["2024-03-16"]; got == nil || len(got) != 0 {
		t.Errorf("empty day bucket = %v, want empty non-nil slice", got)
	}

	want := []string{"manual:4", "task:3", "manual:2", "crm:1"}
	if diff := cmp.Diff(want, keys(buckets["2024-03-15"])); diff != "" {
		t.Errorf("bucket order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortEventsIsStableWithinKind(t *testing.T) {
	events := []CalendarEvent{
		{ID: 9, Kind: KindManual, Time: "12:00"},
		{ID: 3, Kind: KindManual, Time: "12:00"},
		{ID: 7, Kind: KindManual, Time: "12:00"},
	}
	sortEvents(events)
	if diff := cmp.Diff([]string{"manual:9", "manual:3", "manual:7"}, keys(events)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func keys(events []CalendarEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Key()
	}
	return out
}
