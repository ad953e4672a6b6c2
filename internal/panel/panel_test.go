package panel

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeCSV is a test helper that writes a CSV file into a temp dir.
func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test csv: %v", err)
	}
	return path
}

func TestLoadDefaultColumns(t *testing.T) {
	path := writeCSV(t, `year,price,rent,housing_units,completions,population,vacancy_rate
2019,510000,2050,1010,10,101000,0.05
2018,500000,2000,1000,0,100000,0.05
`)

	p, err := Load(path, ColumnMap{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("expected 2 records, got %d", len(p))
	}
	// sorted ascending by year even though the file is not
	if p[0].Year != 2018 || p[1].Year != 2019 {
		t.Errorf("expected years [2018 2019], got [%d %d]", p[0].Year, p[1].Year)
	}
	if p[0].Price != 500000 || p[0].Rent != 2000 {
		t.Errorf("anchor record mismatch: %+v", p[0])
	}
	if p[1].Completions != 10 {
		t.Errorf("expected completions 10, got %g", p[1].Completions)
	}
}

func TestLoadCustomColumns(t *testing.T) {
	path := writeCSV(t, `yr,zhvi,zori,units,built,pop,vac
2018,500000,2000,1000,0,100000,0.05
2019,510000,2050,1010,10,101000,0.05
`)

	cols := ColumnMap{
		Year: "yr", Price: "zhvi", Rent: "zori", HousingUnits: "units",
		Completions: "built", Population: "pop", VacancyRate: "vac",
	}
	p, err := Load(path, cols)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p[1].Price != 510000 || p[1].HousingUnits != 1010 {
		t.Errorf("mapped record mismatch: %+v", p[1])
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeCSV(t, `year,price,rent
2018,500000,2000
`)

	_, err := Load(path, ColumnMap{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestLoadRaggedRowMissingYear(t *testing.T) {
	// year is the last column, so a short row has no year cell at all.
	path := writeCSV(t, `price,rent,housing_units,completions,population,vacancy_rate,year
500000,2000,1000,0,100000,0.05,2018
510000,2050
`)

	_, err := Load(path, ColumnMap{})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for ragged row, got %v", err)
	}
}

func TestLoadBlankCellBecomesNaN(t *testing.T) {
	path := writeCSV(t, `year,price,rent,housing_units,completions,population,vacancy_rate
2018,500000,2000,1000,,100000,0.05
2019,510000,2050,1010,10,101000,0.05
`)

	p, err := Load(path, ColumnMap{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !math.IsNaN(p[0].Completions) {
		t.Errorf("expected NaN for blank cell, got %g", p[0].Completions)
	}
}

func TestFilterYears(t *testing.T) {
	p := Panel{
		{Year: 2015}, {Year: 2016}, {Year: 2017}, {Year: 2018}, {Year: 2019},
	}

	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name  string
		start *int
		end   *int
		want  []int
	}{
		{"no bounds", nil, nil, []int{2015, 2016, 2017, 2018, 2019}},
		{"start only", intPtr(2017), nil, []int{2017, 2018, 2019}},
		{"end only", nil, intPtr(2016), []int{2015, 2016}},
		{"both inclusive", intPtr(2016), intPtr(2018), []int{2016, 2017, 2018}},
		{"empty window", intPtr(2020), nil, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.FilterYears(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
			}
			for i, y := range tt.want {
				if got[i].Year != y {
					t.Errorf("record %d: expected year %d, got %d", i, y, got[i].Year)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := Record{Year: 2018, Price: 500000, Rent: 2000, HousingUnits: 1000, Population: 100000, VacancyRate: 0.05}
	next := Record{Year: 2019, Price: 510000, Rent: 2050, HousingUnits: 1010, Population: 101000, VacancyRate: 0.05}

	tests := []struct {
		name    string
		panel   Panel
		wantErr bool
	}{
		{"valid", Panel{good, next}, false},
		{"too short", Panel{good}, true},
		{"empty", Panel{}, true},
		{"zero anchor price", Panel{{Year: 2018, Rent: 2000, HousingUnits: 1000, Population: 100000}, next}, true},
		{"negative anchor rent", Panel{{Year: 2018, Price: 500000, Rent: -1, HousingUnits: 1000, Population: 100000}, next}, true},
		{"NaN anchor population", Panel{{Year: 2018, Price: 500000, Rent: 2000, HousingUnits: 1000, Population: math.NaN()}, next}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.panel.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr {
				var inputErr *InputError
				if !errors.As(err, &inputErr) {
					t.Errorf("expected InputError, got %T", err)
				}
			}
		})
	}
}

func TestOtherChange(t *testing.T) {
	p := Panel{
		{Year: 2016, HousingUnits: 1000},
		{Year: 2017, HousingUnits: 1020, Completions: 15}, // +20 observed, 15 built -> 5 other
		{Year: 2018, HousingUnits: 1015, Completions: 10}, // -5 observed, 10 built -> -15 other
	}

	got := p.OtherChange()
	want := []float64{0, 5, -15}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("other[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}
