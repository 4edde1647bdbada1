package edxs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// DefaultDBName identifies the bundled emission-line table.
const DefaultDBName = "default_xrays.json"

//go:embed tables/default_xrays.json
var defaultXRayTable []byte

// Line is a single characteristic emission line.
type Line struct {
	EnergyKeV float64 `json:"energy"`
	Weight    float64 `json:"weight"`
}

// Series groups the emission lines of one shell (K, L or M) together with
// the shell's absorption-edge energy.
type Series struct {
	EdgeKeV float64 `json:"edge"`
	Lines   []Line  `json:"lines"`
}

// LineDB maps element symbol -> series name -> emission series.
type LineDB map[string]map[string]Series

// ParseLineDB decodes a JSON emission-line table.
func ParseLineDB(data []byte) (LineDB, error) {
	var db LineDB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("parse line table: %w", err)
	}
	return db, nil
}

// LoadLineDB returns the emission-line table for a database name. Only the
// bundled table is resolvable by name; external tables go through
// ParseLineDB.
func LoadLineDB(name string) (LineDB, error) {
	if name == "" || name == DefaultDBName {
		return ParseLineDB(defaultXRayTable)
	}
	return nil, fmt.Errorf("unknown x-ray database %q", name)
}

var (
	defaultDBOnce sync.Once
	defaultDBVal  LineDB
)

// defaultDB returns the bundled table, parsed once.
func defaultDB() LineDB {
	defaultDBOnce.Do(func() {
		db, err := ParseLineDB(defaultXRayTable)
		if err != nil {
			panic("edxs: bundled x-ray table is invalid: " + err.Error())
		}
		defaultDBVal = db
	})
	return defaultDBVal
}

// SeriesFor returns the series of one element sorted by series name, so
// iteration order is deterministic.
func (db LineDB) SeriesFor(symbol string) []Series {
	byName, ok := db[symbol]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Series, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// Edges returns the absorption-edge energies of one element in ascending
// order. Used by the attenuation model to place shell jumps.
func (db LineDB) Edges(symbol string) []float64 {
	var edges []float64
	for _, s := range db[symbol] {
		edges = append(edges, s.EdgeKeV)
	}
	sort.Float64s(edges)
	return edges
}

// HasElement reports whether the table carries lines for the symbol.
func (db LineDB) HasElement(symbol string) bool {
	_, ok := db[symbol]
	return ok
}
