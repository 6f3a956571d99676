package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

func TestExportXLSX_Sheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	require.NoError(t, ExportXLSX(path, buildTestResult()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPlan, SheetDemand, SheetSteps}, f.GetSheetList())

	plan, err := f.GetRows(SheetPlan)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(plan), 3)
	assert.Equal(t, []string{"Pattern", "Bars", "Used (mm)", "Waste (mm)", "Rail (50)", "Post (30)"}, plan[0])
	assert.Equal(t, []string{"1", "2", "100", "0", "2", "0"}, plan[1])
	assert.Equal(t, []string{"2", "1", "90", "10", "0", "3"}, plan[2])
	assert.Equal(t, []string{"Total", "3", "290", "10"}, plan[len(plan)-1])

	demand, err := f.GetRows(SheetDemand)
	require.NoError(t, err)
	require.Len(t, demand, 3)
	assert.Equal(t, []string{"Rail", "50", "4", "4", "0"}, demand[1])

	steps, err := f.GetRows(SheetSteps)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, "initial", steps[1][0])
	assert.Equal(t, []string{"refine", "2", "optimal", "3", "2", "10", "yes"}, steps[2])
	assert.Equal(t, "infeasible", steps[3][2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, buildTestResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

func TestExportXLSX_EmptyResult(t *testing.T) {
	err := ExportXLSX(filepath.Join(t.TempDir(), "empty.xlsx"), model.OptimizeResult{})
	assert.Error(t, err)
}
