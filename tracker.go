package xlbind

import (
	"reflect"
	"sort"
)

// tracker remembers which physical row produced which record, per sheet and
// target type, so tracked records can be written back in place.
type tracker struct {
	sheets map[string]map[reflect.Type]map[int]any
}

func newTracker() *tracker {
	return &tracker{sheets: make(map[string]map[reflect.Type]map[int]any)}
}

// put records the row a record came from, replacing any earlier record.
func (t *tracker) put(sheet string, typ reflect.Type, row int, record any) {
	types, ok := t.sheets[sheet]
	if !ok {
		types = make(map[reflect.Type]map[int]any)
		t.sheets[sheet] = types
	}
	rows, ok := types[typ]
	if !ok {
		rows = make(map[int]any)
		types[typ] = rows
	}
	rows[row] = record
}

// forget marks a tracked row as absent so writes skip it.
func (t *tracker) forget(sheet string, typ reflect.Type, row int) bool {
	rows := t.sheets[sheet][typ]
	if _, ok := rows[row]; !ok {
		return false
	}
	rows[row] = nil
	return true
}

// rows returns the tracked row indexes in ascending order.
func (t *tracker) rows(sheet string, typ reflect.Type) []int {
	rows := t.sheets[sheet][typ]
	out := make([]int, 0, len(rows))
	for row := range rows {
		out = append(out, row)
	}
	sort.Ints(out)
	return out
}

// get returns the record tracked at row, or nil.
func (t *tracker) get(sheet string, typ reflect.Type, row int) any {
	return t.sheets[sheet][typ][row]
}

// len returns how many rows are tracked for a sheet and type.
func (t *tracker) len(sheet string, typ reflect.Type) int {
	return len(t.sheets[sheet][typ])
}

func (t *tracker) reset() {
	clear(t.sheets)
}
