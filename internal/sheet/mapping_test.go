package sheet

import (
	"testing"
	"time"
)

var june2025 = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestMapColumns_CanonicalAndAliases(t *testing.T) {
	t.Parallel()

	header := []string{"Festival Name", "City", "Country", "MM", "Notes", "2025", "2026", "Languages", "Webpage", "Facebook", "Email"}
	m := MapColumns(header, june2025)

	want := map[string]int{
		FieldName:        0,
		FieldCity:        1,
		FieldCountry:     2,
		FieldMonthNumber: 3,
		"2025":           5,
		"2026":           6,
		FieldLanguages:   7,
		FieldWebpage:     8,
		FieldFacebook:    9,
		FieldEmail:       10,
	}
	if len(m) != len(want) {
		t.Fatalf("mapping size want=%d got=%d (%v)", len(want), len(m), m)
	}
	for k, idx := range want {
		if got, ok := m.Index(k); !ok || got != idx {
			t.Fatalf("field %q want=%d got=%d ok=%v", k, idx, got, ok)
		}
	}
	if _, ok := m["notes"]; ok {
		t.Fatalf("unrecognized header must be ignored")
	}
}

func TestMapColumns_OnlyCurrentAndNextYear(t *testing.T) {
	t.Parallel()

	m := MapColumns([]string{"2024", "2025", "2026", "2027"}, june2025)
	if _, ok := m["2024"]; ok {
		t.Fatalf("past year column must not be mapped")
	}
	if _, ok := m["2027"]; ok {
		t.Fatalf("year after next must not be mapped")
	}
	if m["2025"] != 1 || m["2026"] != 2 {
		t.Fatalf("unexpected year mapping: %v", m)
	}
}

func TestMapColumns_YearBoundary(t *testing.T) {
	t.Parallel()

	newYear := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	m := MapColumns([]string{"2025", "2026", "2027"}, newYear)
	if _, ok := m["2025"]; ok {
		t.Fatalf("2025 must drop out on 2026-01-01")
	}
	if m["2026"] != 1 || m["2027"] != 2 {
		t.Fatalf("unexpected year mapping: %v", m)
	}
}

func TestMapColumns_FirstDuplicateWins(t *testing.T) {
	t.Parallel()

	m := MapColumns([]string{"City", "Festival name", "CITY", "name"}, june2025)
	if m[FieldCity] != 0 {
		t.Fatalf("city want=0 got=%d", m[FieldCity])
	}
	if m[FieldName] != 1 {
		t.Fatalf("name want=1 got=%d", m[FieldName])
	}
}

func TestMapColumns_EmptyOrGarbledHeader(t *testing.T) {
	t.Parallel()

	if m := MapColumns(nil, june2025); len(m) != 0 {
		t.Fatalf("nil header want empty mapping, got %v", m)
	}
	if m := MapColumns([]string{"", "???", "foo bar"}, june2025); len(m) != 0 {
		t.Fatalf("garbled header want empty mapping, got %v", m)
	}
}

func TestMapColumns_TextMonthColumnIsIgnored(t *testing.T) {
	t.Parallel()

	m := MapColumns([]string{"Festival Name", "Month", "MM", "2025", "2026"}, june2025)
	if got, ok := m.Index(FieldMonthNumber); !ok || got != 2 {
		t.Fatalf("month-number want=2 (MM) got=%d ok=%v", got, ok)
	}
	if got, ok := m.Index(FieldName); !ok || got != 0 {
		t.Fatalf("name want=0 got=%d ok=%v", got, ok)
	}
}

func TestMapColumns_OnlyKnownAliases(t *testing.T) {
	t.Parallel()

	m := MapColumns([]string{"Festival", "Language", "Website", "Web", "E-mail"}, june2025)
	if len(m) != 0 {
		t.Fatalf("guessed aliases must not map, got %v", m)
	}
}
