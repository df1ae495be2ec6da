package config

import (
	"fmt"
	"sort"
)

// ValidateStations checks the structural contract of the stations
// directory: a top-level 'banks' mapping whose entries are mappings that
// each contain a 'stations' mapping. Individual station records are the
// content provider's concern and are not recursed into.
func ValidateStations(tree any) Issues {
	var issues Issues

	cfg, ok := asMapping(tree)
	if !ok {
		issues.addf("", "stations config must be a mapping")
		return issues
	}

	raw, ok := cfg["banks"]
	if !ok {
		issues.addf("banks", "missing section")
		return issues
	}
	banks, ok := asMapping(raw)
	if !ok {
		issues.addf("banks", "must be a mapping")
		return issues
	}

	for _, key := range sortedKeys(banks) {
		bank, ok := asMapping(banks[key])
		if !ok {
			issues.addf(fmt.Sprintf("banks[%v]", key), "must be a mapping")
			continue
		}
		stations, ok := bank["stations"]
		if !ok {
			issues.addf(fmt.Sprintf("banks[%v]", key), "missing 'stations'")
			continue
		}
		if _, ok := asMapping(stations); !ok {
			issues.addf(fmt.Sprintf("banks[%v].stations", key), "must be a mapping")
		}
	}

	return issues
}

// Station is one playable entry in a bank.
type Station struct {
	Index int
	Name  string
	URL   string
}

// Bank groups stations under a numeric index.
type Bank struct {
	Index    int
	Name     string
	stations map[int]Station
}

// Stations returns the bank's stations in ascending index order.
func (b Bank) Stations() []Station {
	out := make([]Station, 0, len(b.stations))
	for _, key := range sortedIntKeys(b.stations) {
		out = append(out, b.stations[key])
	}
	return out
}

// Station returns the station at the given index.
func (b Bank) Station(index int) (Station, bool) {
	s, ok := b.stations[index]
	return s, ok
}

// Directory is the typed projection of a validated stations tree.
type Directory struct {
	banks map[int]Bank
}

// Banks returns the banks in ascending index order, the order the
// physical bank switch steps through them.
func (d Directory) Banks() []Bank {
	out := make([]Bank, 0, len(d.banks))
	for _, key := range sortedIntKeys(d.banks) {
		out = append(out, d.banks[key])
	}
	return out
}

// Bank returns the bank at the given index.
func (d Directory) Bank(index int) (Bank, bool) {
	b, ok := d.banks[index]
	return b, ok
}

// LoadDirectory projects a stations tree into a Directory. Entries that
// the structural validator would have flagged are skipped rather than
// failing the whole directory, so a partially broken file still plays what
// it can.
func LoadDirectory(tree any) Directory {
	dir := Directory{banks: make(map[int]Bank)}

	banksRaw, _ := get(tree, "banks")
	banks, ok := asMapping(banksRaw)
	if !ok {
		return dir
	}

	for key, raw := range banks {
		index, ok := asInt(key)
		if !ok {
			continue
		}
		bankMap, ok := asMapping(raw)
		if !ok {
			continue
		}
		bank := Bank{Index: index, stations: make(map[int]Station)}
		bank.Name, _ = bankMap["name"].(string)

		stations, _ := asMapping(bankMap["stations"])
		for sKey, sRaw := range stations {
			sIndex, ok := asInt(sKey)
			if !ok {
				continue
			}
			st := Station{Index: sIndex}
			if sMap, ok := asMapping(sRaw); ok {
				st.Name, _ = sMap["name"].(string)
				st.URL, _ = sMap["url"].(string)
			}
			bank.stations[sIndex] = st
		}
		dir.banks[index] = bank
	}
	return dir
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
