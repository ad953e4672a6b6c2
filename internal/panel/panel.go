// Package panel loads and validates the observed annual housing panel:
// one record per calendar year with price, rent, stock, completions,
// population and vacancy levels. The panel is read-only input to the
// simulation; nothing in this package mutates a loaded panel.
package panel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Record is one calendar year of a region's housing market.
type Record struct {
	Year         int
	Price        float64 // price level, e.g. median home value
	Rent         float64 // rent level, e.g. median asking rent
	HousingUnits float64 // total housing stock
	Completions  float64 // units added that year
	Population   float64
	VacancyRate  float64 // fraction, typically in [0,1]
}

// Panel is an ordered sequence of records sorted ascending by year.
// The first record anchors every simulated path and is never recomputed.
type Panel []Record

// InputError reports a malformed input panel: too short, or degenerate
// values at the anchor year.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input panel: " + e.Reason
}

// ColumnMap maps logical panel fields to concrete CSV column labels.
// Empty fields fall back to the default labels (the logical names).
type ColumnMap struct {
	Year         string `yaml:"year"`
	Price        string `yaml:"price"`
	Rent         string `yaml:"rent"`
	HousingUnits string `yaml:"housing_units"`
	Completions  string `yaml:"completions"`
	Population   string `yaml:"population"`
	VacancyRate  string `yaml:"vacancy_rate"`
}

func (m ColumnMap) withDefaults() ColumnMap {
	def := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return ColumnMap{
		Year:         def(m.Year, "year"),
		Price:        def(m.Price, "price"),
		Rent:         def(m.Rent, "rent"),
		HousingUnits: def(m.HousingUnits, "housing_units"),
		Completions:  def(m.Completions, "completions"),
		Population:   def(m.Population, "population"),
		VacancyRate:  def(m.VacancyRate, "vacancy_rate"),
	}
}

// Load reads a headered CSV file into a Panel using the given column
// mapping, coercing values and sorting ascending by year. Blank cells
// become NaN and are caught later by Validate if they land on the
// anchor year.
func Load(path string, cols ColumnMap) (Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening panel data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading panel data %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, &InputError{Reason: fmt.Sprintf("%s has no data rows", path)}
	}

	cols = cols.withDefaults()
	header := rows[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	col := func(label string) (int, error) {
		i, ok := index[label]
		if !ok {
			return 0, &InputError{Reason: fmt.Sprintf("%s is missing column %q", path, label)}
		}
		return i, nil
	}

	yearIdx, err := col(cols.Year)
	if err != nil {
		return nil, err
	}
	fieldIdx := make([]int, 6)
	for i, label := range []string{cols.Price, cols.Rent, cols.HousingUnits, cols.Completions, cols.Population, cols.VacancyRate} {
		idx, err := col(label)
		if err != nil {
			return nil, err
		}
		fieldIdx[i] = idx
	}

	p := make(Panel, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		if yearIdx >= len(row) {
			return nil, &InputError{Reason: fmt.Sprintf("row %d: missing year cell", rowNum+2)}
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[yearIdx]))
		if err != nil {
			return nil, &InputError{Reason: fmt.Sprintf("row %d: bad year %q", rowNum+2, row[yearIdx])}
		}

		vals := make([]float64, 6)
		for i, idx := range fieldIdx {
			if idx >= len(row) {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = toFloat(row[idx])
		}

		p = append(p, Record{
			Year:         year,
			Price:        vals[0],
			Rent:         vals[1],
			HousingUnits: vals[2],
			Completions:  vals[3],
			Population:   vals[4],
			VacancyRate:  vals[5],
		})
	}

	sort.Slice(p, func(i, j int) bool { return p[i].Year < p[j].Year })
	return p, nil
}

// toFloat coerces a CSV cell to float64. Blank cells become NaN rather
// than an error so that sparse columns outside the simulated window do
// not reject the whole file.
func toFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FilterYears returns the records with start <= year <= end. A nil bound
// is open. The result shares no storage with the receiver.
func (p Panel) FilterYears(start, end *int) Panel {
	if start == nil && end == nil {
		out := make(Panel, len(p))
		copy(out, p)
		return out
	}
	out := make(Panel, 0, len(p))
	for _, r := range p {
		if start != nil && r.Year < *start {
			continue
		}
		if end != nil && r.Year > *end {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Validate checks the invariants the simulation engine assumes: at least
// two years of data, and strictly positive price, rent, housing stock and
// population at the anchor year.
func (p Panel) Validate() error {
	if len(p) < 2 {
		return &InputError{Reason: fmt.Sprintf("need at least 2 years of data, got %d", len(p))}
	}

	anchor := p[0]
	checks := []struct {
		name  string
		value float64
	}{
		{"price", anchor.Price},
		{"rent", anchor.Rent},
		{"housing_units", anchor.HousingUnits},
		{"population", anchor.Population},
	}
	for _, c := range checks {
		if !(c.value > 0) { // catches NaN as well
			return &InputError{Reason: fmt.Sprintf("anchor year %d has non-positive %s (%g)", anchor.Year, c.name, c.value)}
		}
	}
	return nil
}

// OtherChange returns the implied year-over-year stock change that the
// completions series does not explain (demolition, conversion, measurement
// drift). The result is index-aligned with the panel; element 0 is 0.
// It depends only on observed data, never on policy.
func (p Panel) OtherChange() []float64 {
	other := make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		dh := p[i].HousingUnits - p[i-1].HousingUnits
		other[i] = dh - p[i].Completions
	}
	return other
}
