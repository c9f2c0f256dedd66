package task

import (
	"fmt"
	"math"
	"time"

	"github.com/piwi3910/cutoptimizer/internal/apperror"
	"github.com/piwi3910/cutoptimizer/internal/cutlog"
	"github.com/piwi3910/cutoptimizer/internal/geometry"
	"github.com/piwi3910/cutoptimizer/internal/grouping"
	"github.com/piwi3910/cutoptimizer/internal/metrics"
	"github.com/piwi3910/cutoptimizer/internal/mosaic"
	"github.com/piwi3910/cutoptimizer/internal/ranking"
	"github.com/piwi3910/cutoptimizer/internal/spawner"
	"github.com/piwi3910/cutoptimizer/internal/stockpicker"
	"github.com/piwi3910/cutoptimizer/internal/worker"
)

// maxPermutationsWithSolution bounds how many permutations the spawn loop
// still tries once an all-fit solution already exists (§4.3 step 6).
const maxPermutationsWithSolution = 150

const maxStockBundlesPerWorker = 1000

// enabledPolicies maps cutOrientationPreference to the first-cut policies
// the spawn loop is allowed to submit (§4.3 step 6's "cutOrientationPreference
// filter"): 0 tries every policy, 1 restricts to horizontal-first, 2 to
// vertical-first.
func enabledPolicies(pref int) []worker.FirstCutPolicy {
	switch pref {
	case 1:
		return []worker.FirstCutPolicy{worker.PolicyHorizontal}
	case 2:
		return []worker.FirstCutPolicy{worker.PolicyVertical}
	default:
		return []worker.FirstCutPolicy{worker.PolicyBoth, worker.PolicyHorizontal, worker.PolicyVertical}
	}
}

// Accuracy implements the §4.3 step 4 beam-width formula.
func Accuracy(optimizationFactor float64, demandCount int) int {
	accuracy := 100 * optimizationFactor
	if demandCount > 100 {
		accuracy *= 0.5 / (float64(demandCount) / 100)
	}
	return int(math.Round(accuracy))
}

// MaterialDriver runs the per-material sequence of §4.3 for one material
// within one Task.
type MaterialDriver struct {
	Task          *Task
	Material      string
	Demand        []geometry.TileDimensions
	Stock         []geometry.TileDimensions
	Config        Configuration
	MaxThreads    int
	CheckInterval time.Duration

	// Executor is the bounded, service-wide CutListWorker pool every
	// spawned worker submits through (§4.1/§3); shared across every
	// material driver and every task for the life of the process.
	Executor *spawner.Executor
}

// Run executes the full 7-step sequence. It returns once the spawn loop
// and every worker it started have drained, having already advanced the
// task's percentage for this material to 100 if the task is still
// RUNNING.
func (d *MaterialDriver) Run() {
	log := cutlog.ForTask(d.Task.ID, d.Material)
	log.Debug().Int("demand", len(d.Demand)).Int("stock", len(d.Stock)).Msg("material driver started")
	d.Task.AppendLog("material " + d.Material + ": driver started")

	grouped := grouping.Group(d.Demand, d.Stock)
	permutations := grouping.Permutations(grouped)

	gen := stockpicker.NewGenerator(d.Stock, d.Demand, 0)
	sorter := stockpicker.NewSorter(gen, d.Task.IsRunning, d.Task.HasAllFitSolution)
	go sorter.Run()

	accuracy := Accuracy(d.Config.OptimizationFactor, len(d.Demand))
	priorityChain := ranking.PriorityListFactory(d.Config.OptimizationPriority)

	shared := worker.NewSharedBeam(priorityChain, func() int { return accuracy })

	var sp *spawner.Spawner
	sp = spawner.New(d.MaxThreads, d.CheckInterval, func() {
		d.Task.Touch()
		log.Debug().Int("alive", sp.AliveCount()).Msg("spawner poll tick")
	}, d.Executor)

	spawnedWorkers := 0
	for _, perm := range permutations {
		if !d.Task.IsRunning() {
			break
		}
		if d.Task.HasAllFitSolution() && spawnedWorkers > maxPermutationsWithSolution {
			break
		}
		d.runBundleGrid(perm, sorter, shared, sp, accuracy)
		spawnedWorkers++
	}

	for sp.HasUnfinished() {
		time.Sleep(1 * time.Second)
	}
	sp.Wait()

	d.Task.MergeBeam(d.Material, shared.Best())
	if d.Task.IsRunning() {
		d.Task.SetMaterialPercentage(d.Material, 100)
	}
	total, errored := d.Task.ThreadCounts()
	log.Debug().Int("spawnedWorkers", spawnedWorkers).Int("totalThreads", total).Int("erroredThreads", errored).Msg("material driver finished")
	d.Task.AppendLog("material " + d.Material + ": driver finished")
}

// runBundleGrid implements the worker body described inline in §4.3 step
// 6: iterate stock bundles 0..999 for this permutation, spawning up to
// three CutListWorkers per bundle (one per enabled, eligible first-cut
// policy).
func (d *MaterialDriver) runBundleGrid(perm []geometry.TileDimensions, sorter *stockpicker.Sorter, shared *worker.SharedBeam, sp *spawner.Spawner, accuracy int) {
	rankings := d.Task.ThreadGroupRankings(d.Material)
	priorityChain := ranking.PriorityListFactory(d.Config.OptimizationPriority)
	log := cutlog.ForTask(d.Task.ID, d.Material)

	for i := 0; i < maxStockBundlesPerWorker; i++ {
		if !d.Task.IsRunning() {
			return
		}
		bundle, ok := sorter.GetStockSolution(i)
		if !ok {
			return
		}
		if d.Task.HasAllFitSolution() && smallerAreaAllFitExists(d.Task, d.Material, bundle) {
			continue
		}

		for _, policy := range enabledPolicies(d.Config.CutOrientationPreference) {
			if !rankings.Eligible(d.Material, policy.GroupLabel()) {
				continue
			}
			cfg := worker.Config{
				StockBundle:      bundle,
				CutThickness:     d.Config.CutThickness,
				MinTrimDimension: d.Config.MinTrimDimension,
				ConsiderGrain:    d.Config.ConsiderOrientation,
				FirstCutPolicy:   policy,
				ThreadRankChain:  priorityChain,
				FinalRankChain:   priorityChain,
				Accuracy:         accuracy,
				Shared:           shared,
				IsRunning:        d.Task.IsRunning,
				OnMinTrimInfluenced: func() {
					d.Task.RecordMinTrimInfluenced(d.Material)
				},
				OnPercentage: func(pct int) {
					d.Task.RecordThreadPercentage(pct)
				},
				OnTopGroupContribution: func(count int) {
					rankings.RecordFinished(d.Material, policy.GroupLabel(), count)
				},
			}
			w := worker.NewWorker(perm, cfg)
			group := policy.GroupLabel()
			accepted := sp.Spawn(func() {
				defer func() {
					r := recover()
					errored := r != nil
					d.Task.RecordWorkerFinished(errored)
					outcome := "ok"
					if errored {
						outcome = "error"
						appErr := apperror.New(apperror.CategoryTask, apperror.CodeTaskWorkerError, fmt.Sprintf("worker panicked: %v", r))
						log.Error().Str("group", group).Str("code", string(appErr.Code)).Msg(appErr.Error())
						d.Task.AppendLog("material " + d.Material + ": " + appErr.Error())
					}
					metrics.RecordWorkerFinished(group, outcome)
				}()
				w.Run()
			})
			if !accepted {
				log.Warn().Str("group", group).Msg("worker rejected, executor queue full")
				d.Task.AppendLog("material " + d.Material + ": worker rejected (executor queue full)")
				metrics.RecordWorkerFinished(group, "rejected")
			}
		}
	}
}

// smallerAreaAllFitExists reports whether an all-fit solution using a
// single mosaic of smaller total area than bundle already exists for
// material, which lets the worker body skip bundles that cannot possibly
// improve on it (§4.3 step 6).
func smallerAreaAllFitExists(t *Task, material string, bundle *mosaic.StockBundle) bool {
	best := t.BestSolution(material)
	if best == nil || len(best.NoFitPanels) != 0 || len(best.Mosaics) != 1 {
		return false
	}
	return best.Mosaics[0].Root.Area() < bundle.TotalArea
}
