package task

import (
	"testing"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask() *Task {
	req := Request{
		Demand: []geometry.TileDimensions{{ID: 1, Width: 60, Height: 50}},
		Stock:  []geometry.TileDimensions{{ID: 1, Width: 100, Height: 50}},
	}
	return New("T1", "client-a", req, 1)
}

func TestTaskLifecycleIdleToRunningToFinished(t *testing.T) {
	tk := newTestTask()
	assert.Equal(t, StatusIdle, tk.Status())

	tk.SetRunning()
	assert.True(t, tk.IsRunning())

	tk.SetMaterialPercentage(geometry.DefaultMaterial, 100)
	assert.Equal(t, StatusFinished, tk.Status())
}

func TestTaskStopOnlyValidFromRunning(t *testing.T) {
	tk := newTestTask()
	tk.Stop()
	assert.Equal(t, StatusIdle, tk.Status(), "Stop is a no-op outside RUNNING")

	tk.SetRunning()
	tk.Stop()
	assert.Equal(t, StatusStopped, tk.Status())
	assert.False(t, tk.EndTime.IsZero())
}

func TestOverallPercentageAveragesMaterials(t *testing.T) {
	req := Request{
		Demand: []geometry.TileDimensions{
			{ID: 1, Width: 10, Height: 10, Material: "wood"},
			{ID: 2, Width: 10, Height: 10, Material: "steel"},
		},
		Stock: []geometry.TileDimensions{{ID: 1, Width: 100, Height: 100}},
	}
	tk := New("T2", "c", req, 1)
	tk.SetRunning()
	tk.SetMaterialPercentage("wood", 50)
	tk.SetMaterialPercentage("steel", 0)

	assert.Equal(t, 25, tk.OverallPercentage())
	assert.True(t, tk.IsRunning(), "must stay RUNNING while one material is below 100")
}

func TestHasAllFitSolutionRequiresEmptyNoFit(t *testing.T) {
	tk := newTestTask()
	bundle := mosaic.NewStockBundle([]geometry.TileDimensions{{Width: 100, Height: 50}})
	s := mosaic.NewSolution(bundle, time.Now())
	tk.MergeBeam(geometry.DefaultMaterial, []*mosaic.Solution{s})
	assert.True(t, tk.HasAllFitSolution())

	s.NoFitPanels = append(s.NoFitPanels, geometry.TileDimensions{Width: 1, Height: 1})
	tk.MergeBeam(geometry.DefaultMaterial, []*mosaic.Solution{s})
	assert.False(t, tk.HasAllFitSolution())
}

func TestMinTrimInfluencedLatchIsMonotonic(t *testing.T) {
	tk := newTestTask()
	assert.False(t, tk.IsMinTrimDimensionInfluenced(geometry.DefaultMaterial))
	tk.RecordMinTrimInfluenced(geometry.DefaultMaterial)
	assert.True(t, tk.IsMinTrimDimensionInfluenced(geometry.DefaultMaterial))
}

func TestErrorThreadThresholdRequiresAllErroredPastHundred(t *testing.T) {
	tk := newTestTask()
	for i := 0; i < 100; i++ {
		tk.RecordWorkerFinished(true)
	}
	assert.False(t, tk.ErrorThreadThreshold(), "threshold is strictly greater than 100")
	tk.RecordWorkerFinished(true)
	assert.True(t, tk.ErrorThreadThreshold())
	tk.RecordWorkerFinished(false)
	assert.False(t, tk.ErrorThreadThreshold(), "one success breaks the all-errored condition")
}

func TestRunningTasksRegistryArchivesOnTerminalState(t *testing.T) {
	r := NewRunningTasks()
	tk := newTestTask()
	r.Add(tk)
	require.Same(t, tk, r.Get("T1"))

	tk.SetRunning()
	tk.Terminate()
	r.RemoveAndArchive("T1")

	assert.Nil(t, r.Get("T1"))
	assert.Equal(t, int64(1), r.Snapshot().ArchivedTerminated)
}

func TestRunningTasksCountsRunningPerClient(t *testing.T) {
	r := NewRunningTasks()
	a := newTestTask()
	a.ID = "A"
	a.ClientID = "client-x"
	a.SetRunning()
	r.Add(a)

	b := newTestTask()
	b.ID = "B"
	b.ClientID = "client-x"
	r.Add(b)

	assert.Equal(t, 1, r.RunningCountForClient("client-x"))
}

func TestInitPercentageLatchesHighestReported(t *testing.T) {
	tk := newTestTask()
	assert.Equal(t, 0, tk.InitPercentage())

	tk.RecordThreadPercentage(40)
	tk.RecordThreadPercentage(15)
	assert.Equal(t, 40, tk.InitPercentage())

	tk.RecordThreadPercentage(70)
	assert.Equal(t, 70, tk.InitPercentage())
}

func TestAppendLogAccumulatesInOrder(t *testing.T) {
	task := newTestTask()
	task.AppendLog("first")
	task.AppendLog("second")

	assert.Equal(t, []string{"first", "second"}, task.Logs())
}

func TestNextTaskIDIsUniqueAcrossCalls(t *testing.T) {
	r := NewRunningTasks()
	now := time.Now()
	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := r.NextTaskID(now)
		assert.False(t, ids[id])
		ids[id] = true
	}
}
