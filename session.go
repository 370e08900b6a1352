package xlbind

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"

	"github.com/sirupsen/logrus"
)

// RowResult is the outcome of converting one data row.
type RowResult[T any] struct {
	Row         int   // 0-based physical row index
	Value       *T    // nil when Err is set
	ErrorColumn int   // 0-based failing column, -1 if none
	Err         error // *RowError wrapping the cause
}

// OK reports whether the row converted.
func (r RowResult[T]) OK() bool {
	return r.Err == nil
}

type layoutKey struct {
	sheet string
	typ   reflect.Type
}

// Session binds the sheets of one grid to typed records. It owns the
// resolved columns, the style cache and the tracked records of that grid.
// A Session is not safe for concurrent use.
type Session struct {
	grid      Grid
	opts      *Options
	reg       *Registry
	resolvers *ResolverRegistry
	log       logrus.FieldLogger

	layouts map[layoutKey]*sheetLayout
	styles  map[Format]int
	tracked *tracker
}

// NewSession creates a session over a grid.
func NewSession(grid Grid, opts ...Option) (*Session, error) {
	if grid == nil {
		return nil, fmt.Errorf("new session: nil grid")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &Session{
		grid:      grid,
		opts:      o,
		reg:       o.registry,
		resolvers: NewResolverRegistry(),
		log:       o.logger,
		layouts:   make(map[layoutKey]*sheetLayout),
		styles:    make(map[Format]int),
		tracked:   newTracker(),
	}
	if s.reg == nil {
		s.reg = NewRegistry()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	for name, factory := range o.resolverFactories {
		s.resolvers.Register(name, factory)
	}
	if o.defaultResolver != "" && !s.resolvers.Has(o.defaultResolver) {
		return nil, fmt.Errorf("new session: unknown default resolver %q", o.defaultResolver)
	}
	return s, nil
}

// Grid returns the session's grid.
func (s *Session) Grid() Grid {
	return s.grid
}

// Registry returns the session's binding registry.
func (s *Session) Registry() *Registry {
	return s.reg
}

// Resolvers returns the session's resolver registry.
func (s *Session) Resolvers() *ResolverRegistry {
	return s.resolvers
}

// Reset replaces the grid and clears tracked records, resolved columns and
// the style cache. The registry is kept.
func (s *Session) Reset(grid Grid) error {
	if grid == nil {
		return fmt.Errorf("reset session: nil grid")
	}
	s.grid = grid
	clear(s.layouts)
	clear(s.styles)
	s.tracked.reset()
	s.log.Debug("session reset")
	return nil
}

// Columns returns the resolved columns of a sheet for a type.
func (s *Session) Columns(sheet string, t reflect.Type) ([]*Column, error) {
	if err := s.checkSheet(sheet); err != nil {
		return nil, err
	}
	l, err := s.layout(sheet, baseType(t), false)
	if err != nil {
		return nil, err
	}
	return l.columns, nil
}

func (s *Session) checkSheet(sheet string) error {
	if !slices.Contains(s.grid.GetSheetNames(), sheet) {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	return nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// recordType returns the struct type T, rejecting anything else.
func recordType[T any]() (reflect.Type, error) {
	t := typeOf[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record type %s is not a struct", t)
	}
	return t, nil
}

// Take returns the rows of a sheet converted to records of type T. Columns
// are resolved before Take returns, so configuration errors surface here.
// Every range over the sequence re-scans the sheet; a scan stops once the
// failed rows exceed the session's maximum.
func Take[T any](s *Session, sheet string) (iter.Seq[RowResult[T]], error) {
	if s == nil {
		return nil, fmt.Errorf("take: nil session")
	}
	if err := s.checkSheet(sheet); err != nil {
		return nil, fmt.Errorf("take: %w", err)
	}
	t, err := recordType[T]()
	if err != nil {
		return nil, fmt.Errorf("take: %w", err)
	}
	l, err := s.layout(sheet, t, false)
	if err != nil {
		return nil, fmt.Errorf("take %s from %q: %w", t, sheet, err)
	}

	return func(yield func(RowResult[T]) bool) {
		l.resetSlots()
		failures := 0
		last := s.grid.GetLastRow(sheet)
		for row := l.dataStart; row <= last; row++ {
			if s.opts.skipBlankRows && s.isBlankRow(sheet, row) {
				continue
			}
			if !s.beforeRow(sheet, row) {
				continue
			}

			res := RowResult[T]{Row: row, ErrorColumn: -1}
			rec, col, err := s.readRow(l, row)
			if err != nil {
				failures++
				res.ErrorColumn = col
				res.Err = &RowError{Sheet: sheet, Row: row, Column: col, Err: err}
				s.log.WithFields(logrus.Fields{"sheet": sheet, "row": row, "column": col}).
					WithError(err).Debug("row failed")
				s.afterRow(sheet, row, nil, res.Err)
			} else {
				res.Value = rec.Interface().(*T)
				if s.opts.tracking {
					s.tracked.put(sheet, t, row, res.Value)
				}
				s.afterRow(sheet, row, res.Value, nil)
			}

			if !yield(res) {
				return
			}
			if res.Err != nil && s.opts.maxErrorRows >= 0 && failures > s.opts.maxErrorRows {
				s.log.WithFields(logrus.Fields{"sheet": sheet, "row": row, "failures": failures}).
					Info("too many failed rows, stopping")
				return
			}
		}
	}, nil
}

// TakeAll reads every row of a sheet. It returns the converted records and
// the row failures joined into one error.
func TakeAll[T any](s *Session, sheet string) ([]*T, error) {
	rows, err := Take[T](s, sheet)
	if err != nil {
		return nil, err
	}
	var out []*T
	var errs []error
	for res := range rows {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		out = append(out, res.Value)
	}
	return out, errors.Join(errs...)
}

// Put writes records to consecutive data rows of a sheet, creating the sheet
// and its header row if needed. Nil records leave their row untouched. Rows
// below the last record are handled by the trailing-row policy.
func Put[T any](s *Session, sheet string, records []*T) error {
	if s == nil {
		return fmt.Errorf("put: nil session")
	}
	if !slices.Contains(s.grid.GetSheetNames(), sheet) {
		if err := s.grid.NewSheet(sheet); err != nil {
			return fmt.Errorf("put: %w", err)
		}
	}
	t, err := recordType[T]()
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	l, err := s.layout(sheet, t, true)
	if err != nil {
		return fmt.Errorf("put %s to %q: %w", t, sheet, err)
	}

	for i, rec := range records {
		row := l.dataStart + i
		if rec == nil {
			continue
		}
		if err := s.putRow(l, row, reflect.ValueOf(rec)); err != nil {
			return err
		}
	}

	first := l.dataStart + len(records)
	last := s.grid.GetLastRow(sheet)
	if first > last {
		return nil
	}
	fields := logrus.Fields{"sheet": sheet, "from": first, "to": last, "policy": s.opts.trailingRows.String()}
	if s.opts.trailingRows == TrailingKeep {
		s.log.WithFields(fields).Debug("keeping trailing rows")
		return nil
	}
	for row := first; row <= last; row++ {
		if err := s.grid.ClearRow(sheet, row); err != nil {
			return fmt.Errorf("clear row %d of %q: %w", row+1, sheet, err)
		}
	}
	s.log.WithFields(fields).Info("cleared trailing rows")
	return nil
}

// PutTracked writes the records read from a sheet back to the rows they
// came from. Rows whose record was forgotten are skipped.
func PutTracked[T any](s *Session, sheet string) error {
	if s == nil {
		return fmt.Errorf("put tracked: nil session")
	}
	if err := s.checkSheet(sheet); err != nil {
		return fmt.Errorf("put tracked: %w", err)
	}
	t, err := recordType[T]()
	if err != nil {
		return fmt.Errorf("put tracked: %w", err)
	}
	if s.tracked.len(sheet, t) == 0 {
		s.log.WithFields(logrus.Fields{"sheet": sheet, "type": t.String()}).Debug("no tracked records")
		return nil
	}
	l, err := s.layout(sheet, t, true)
	if err != nil {
		return fmt.Errorf("put tracked %s to %q: %w", t, sheet, err)
	}
	for _, row := range s.tracked.rows(sheet, t) {
		rec, _ := s.tracked.get(sheet, t, row).(*T)
		if rec == nil {
			continue
		}
		if err := s.putRow(l, row, reflect.ValueOf(rec)); err != nil {
			return err
		}
	}
	return nil
}

// putRow writes one record with listener notification.
func (s *Session) putRow(l *sheetLayout, row int, rec reflect.Value) error {
	if !s.beforeRow(l.sheet, row) {
		return nil
	}
	col, err := s.writeRow(l, row, rec)
	if err != nil {
		err = &RowError{Sheet: l.sheet, Row: row, Column: col, Err: err}
		s.afterRow(l.sheet, row, nil, err)
		return err
	}
	s.afterRow(l.sheet, row, rec.Interface(), nil)
	return nil
}

// Tracked returns a copy of the records tracked for a sheet, keyed by row.
func Tracked[T any](s *Session, sheet string) map[int]*T {
	t := typeOf[T]()
	out := make(map[int]*T)
	for _, row := range s.tracked.rows(sheet, t) {
		rec, _ := s.tracked.get(sheet, t, row).(*T)
		out[row] = rec
	}
	return out
}

// Forget marks a tracked row so PutTracked skips it. It reports whether
// the row was tracked.
func Forget[T any](s *Session, sheet string, row int) bool {
	return s.tracked.forget(sheet, typeOf[T](), row)
}
