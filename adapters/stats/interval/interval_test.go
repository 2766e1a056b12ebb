package interval

import (
	"errors"
	"math"
	"testing"
	"time"

	"enstats/domain/core"
	"enstats/domain/frequency"
	"enstats/domain/vector"
)

func monthly(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	}
	return dates
}

func requests(base string) []vector.Classification {
	return []vector.Classification{
		{Name: vector.PerIntervalName(base), Kind: vector.KindPerInterval, Base: base},
		{Name: vector.PerDayName(base), Kind: vector.KindPerDay, Base: base},
		{Name: base, Kind: vector.KindRaw, Base: base},
	}
}

func TestDerive_MonthlyCumulative(t *testing.T) {
	dates := monthly(5)
	values := []float64{10, 100, 1000, 10000, 100000}
	table := vector.NewTable([]string{"FOPT"})
	for i, d := range dates {
		table.AppendRow(d, 0, values[i])
	}

	out, err := Derive(table, requests("FOPT"))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if out.Len() != 4 {
		t.Fatalf("Expected 4 rows, got %d", out.Len())
	}
	names := out.VectorNames()
	if len(names) != 2 || names[0] != "PER_INTVL_FOPT" || names[1] != "PER_DAY_FOPT" {
		t.Fatalf("Unexpected columns %v", names)
	}

	wantIntvl := []float64{90, 900, 9000, 90000}
	// Jan 31, Feb 29 (2020 is a leap year), Mar 31, Apr 30
	wantDays := []float64{31, 29, 31, 30}
	times, _ := out.Times()
	for i := range wantIntvl {
		if !times[i].Equal(dates[i]) {
			t.Errorf("row %d indexed at %v, want interval start %v", i, times[i], dates[i])
		}
		if got := out.Column("PER_INTVL_FOPT")[i]; got != wantIntvl[i] {
			t.Errorf("PER_INTVL_FOPT[%d] = %f, want %f", i, got, wantIntvl[i])
		}
		want := wantIntvl[i] / wantDays[i]
		if got := out.Column("PER_DAY_FOPT")[i]; math.Abs(got-want) > 1e-12 {
			t.Errorf("PER_DAY_FOPT[%d] = %f, want %f", i, got, want)
		}
	}
}

func TestDerive_ShortRealizationsContributeNothing(t *testing.T) {
	dates := monthly(3)
	table := vector.NewTable([]string{"FOPT"})
	table.AppendRow(dates[0], 1, 5)
	table.AppendRow(dates[0], 2, 0)
	table.AppendRow(dates[1], 2, 31)

	out, err := Derive(table, requests("FOPT"))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", out.Len())
	}
	if out.Real(0) != 2 {
		t.Errorf("Expected realization 2, got %d", out.Real(0))
	}
	if got := out.Column("PER_DAY_FOPT")[0]; got != 1 {
		t.Errorf("Expected 1 per day, got %f", got)
	}
}

func TestDerive_DuplicateDateIsDegenerate(t *testing.T) {
	d := monthly(1)[0]
	table := vector.NewTable([]string{"FOPT"})
	table.AppendRow(d, 0, 1)
	table.AppendRow(d, 0, 2)

	_, err := Derive(table, requests("FOPT"))
	if !errors.Is(err, core.ErrDegenerateInterval) {
		t.Fatalf("Expected ErrDegenerateInterval, got %v", err)
	}
}

func TestDerive_EmptyTableKeepsShape(t *testing.T) {
	out, err := Derive(vector.NewTable([]string{"FOPT"}), requests("FOPT"))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if out.Len() != 0 || len(out.VectorNames()) != 2 {
		t.Errorf("Expected empty table with 2 columns, got %d rows %v", out.Len(), out.VectorNames())
	}
}

func TestDerive_MissingBase(t *testing.T) {
	_, err := Derive(vector.NewTable([]string{"FGPT"}), requests("FOPT"))
	if !errors.Is(err, core.ErrVariableNotFound) {
		t.Errorf("Expected ErrVariableNotFound, got %v", err)
	}
}

func TestLabels(t *testing.T) {
	table := vector.NewTable([]string{"PER_INTVL_FOPT"})
	table.AppendRow(time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC), 0, 1)

	labels, err := Labels(table, frequency.Quarterly)
	if err != nil {
		t.Fatalf("Labels failed: %v", err)
	}
	if labels[0] != "Q2 2021" {
		t.Errorf("Expected Q2 2021, got %s", labels[0])
	}
}
