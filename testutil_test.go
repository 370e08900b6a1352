package xlbind

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// testdataDir returns the path to testdata directory, creating it if needed.
func testdataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join("testdata")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusActive:
		return "Active"
	case StatusClosed:
		return "Closed"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

type Order struct {
	ID       int     `xl:"Order ID"`
	Customer string
	Amount   float64 `xl:",format='#,##0.00'"`
	Paid     bool
	Placed   time.Time
	Status   Status
	Notes    string `xl:"-"`
}

var (
	march15 = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	april2  = time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)
)

// orderRows returns a header row and two order rows.
func orderRows() [][]any {
	return [][]any{
		{"Order ID", "Customer", "Amount", "Paid", "Placed", "Status"},
		{1, "Acme", 120.5, true, march15, "Active"},
		{2, "Globex", 99, false, april2, "closed"},
	}
}

// newRegistry returns a registry with the Status enum registered.
func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterEnum(reg, StatusPending, StatusActive, StatusClosed))
	return reg
}

// memSheet builds an in-memory grid holding one sheet. Nil values leave the cell empty.
func memSheet(t *testing.T, sheet string, rows ...[]any) *MemGrid {
	t.Helper()
	g := NewMemGrid(sheet)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			require.NoError(t, g.SetCellValue(NewCellRef(sheet, r, c), v))
		}
	}
	return g
}

// newTestSession creates a session logging into a test hook.
func newTestSession(t *testing.T, g Grid, opts ...Option) (*Session, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s, err := NewSession(g, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return s, hook
}

// createOrdersWorkbook writes orderRows to an xlsx file with excelize.
func createOrdersWorkbook(t *testing.T, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for r, row := range orderRows() {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	path := filepath.Join(testdataDir(t), name)
	require.NoError(t, f.SaveAs(path))
	t.Cleanup(func() { os.Remove(path) })
	return path
}

// cellValue returns the stored value of a grid cell, nil when blank.
func cellValue(g Grid, sheet string, row, col int) any {
	cd := g.GetCellData(NewCellRef(sheet, row, col))
	if cd.IsBlank() {
		return nil
	}
	return cd.Value
}
