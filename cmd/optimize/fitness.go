package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/telemetry"
)

// FitnessEvaluator runs headless simulations and scores the structure they
// grow.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	cfg := fe.configFor(x)

	qualities := make([]float64, len(fe.seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range fe.seeds {
		g.Go(func() error {
			windows, err := runSimulation(gctx, cfg, seed, fe.maxTicks)
			if err != nil {
				return err
			}
			qualities[i] = computeQuality(windows, cfg.Engine.MaxGroupLevels)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	quality := stat.Mean(qualities, nil)
	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()
	return -quality, nil
}

// configFor copies the base config and applies x.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)
	return &cfg
}

// runSimulation runs one headless simulation and returns its stats windows.
// Each run gets its own copy of cfg.
func runSimulation(ctx context.Context, cfg *config.Config, seed int64, maxTicks uint64) ([]telemetry.WindowStats, error) {
	run := *cfg
	var windows []telemetry.WindowStats
	d, err := host.New(&run, host.Options{
		Seed:        seed,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Unthrottled: true,
		MaxTicks:    maxTicks,
		OnWindow:    func(ws telemetry.WindowStats) { windows = append(windows, ws) },
	})
	if err != nil {
		return nil, err
	}
	d.Init(true)
	if err := d.Run(ctx); err != nil {
		return nil, err
	}
	return windows, nil
}

// Quality component weights.
const (
	qualityWeightHits      = 0.25
	qualityWeightLevels    = 0.25
	qualityWeightPerma     = 0.20
	qualityWeightStability = 0.15
	qualityWeightStrong    = 0.15

	qualityWarmupWindows = 3   // skip first N windows (warmup)
	targetHitRate        = 0.3 // share of signals that should land
	hitRateWidth         = 0.2 // tolerance around targetHitRate
	targetStrongPerNode  = 1.0 // strong links per live node
)

// computeQuality scores a run in [0, 1] from its stats windows after
// warmup. Windows without live nodes are skipped.
func computeQuality(windows []telemetry.WindowStats, maxLevels int) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var hitSum, levelSum, permaSum, strongSum float64
	live := make([]float64, 0, len(valid))
	for _, w := range valid {
		if w.LiveNodes == 0 {
			continue
		}
		n := float64(w.LiveNodes)
		live = append(live, n)

		e := (w.HitRate - targetHitRate) / hitRateWidth
		hitSum += math.Exp(-e * e)

		if maxLevels > 1 {
			levelSum += clamp01(float64(w.MaxLevel-1) / float64(maxLevels-1))
		}

		permaSum += 1 - math.Exp(-float64(w.PermaLinks)/n)

		if w.StrongLinks > 0 {
			l := math.Log(float64(w.StrongLinks) / n / targetStrongPerNode)
			strongSum += math.Exp(-l * l)
		}
	}
	if len(live) == 0 {
		return 0
	}
	k := float64(len(live))

	stability := 0.0
	if len(live) >= 2 {
		mean, std := stat.MeanStdDev(live, nil)
		if mean > 0 {
			cv := std / mean
			stability = math.Exp(-cv * cv)
		}
	}

	quality := qualityWeightHits*hitSum/k +
		qualityWeightLevels*levelSum/k +
		qualityWeightPerma*permaSum/k +
		qualityWeightStability*stability +
		qualityWeightStrong*strongSum/k
	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}
