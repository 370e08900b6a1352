package xlbind

// RowListener is notified before and after each row a session reads or
// writes. Implement it for progress reporting, auditing or row filtering.
type RowListener interface {
	// BeforeRow is called before a row is converted.
	// Return false to skip the row.
	BeforeRow(sheet string, row int) bool

	// AfterRow is called after a row was converted. record is the record
	// read or written (a pointer to the target type), nil if err is set.
	AfterRow(sheet string, row int, record any, err error)
}

// RowListenerFuncs adapts plain functions to RowListener. Nil funcs are skipped.
type RowListenerFuncs struct {
	Before func(sheet string, row int) bool
	After  func(sheet string, row int, record any, err error)
}

// BeforeRow calls Before, if set.
func (l RowListenerFuncs) BeforeRow(sheet string, row int) bool {
	if l.Before == nil {
		return true
	}
	return l.Before(sheet, row)
}

// AfterRow calls After, if set.
func (l RowListenerFuncs) AfterRow(sheet string, row int, record any, err error) {
	if l.After != nil {
		l.After(sheet, row, record, err)
	}
}

func (s *Session) beforeRow(sheet string, row int) bool {
	for _, l := range s.opts.rowListeners {
		if !l.BeforeRow(sheet, row) {
			return false
		}
	}
	return true
}

func (s *Session) afterRow(sheet string, row int, record any, err error) {
	for _, l := range s.opts.rowListeners {
		l.AfterRow(sheet, row, record, err)
	}
}
