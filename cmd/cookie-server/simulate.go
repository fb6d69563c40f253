package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/cookie-engine/internal/engine"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/infra/storage"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// CheckResult captures the outcome of one simulation check.
type CheckResult struct {
	Name   string
	Passed bool
	Reason string
}

type simOptions struct {
	duration time.Duration
	step     time.Duration
	seed     int64
	prestige bool
}

func newSimulateCmd() *cobra.Command {
	var opts simOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a headless game with the greedy autopilot and check engine invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts)
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 2*time.Hour, "simulated play time")
	cmd.Flags().DurationVar(&opts.step, "step", time.Second, "tick size")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&opts.prestige, "prestige", false, "ascend at the end if any heavenly units are available")
	return cmd
}

func runSimulate(opts simOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	const slot = "simulation"

	eventRepo := storage.NewMemoryEventRepository()
	eventLog := events.NewEventLog(storage.NewPersister(eventRepo, slot), cfg.Server.EventRetention)

	// Frozen wall clock: the run is deterministic for a given seed.
	start := time.Now()
	eng, err := engine.NewEngine(nil, cfg.Engine,
		engine.WithSink(eventLog),
		engine.WithLogger(logger.Discard()),
		engine.WithRand(rand.New(rand.NewSource(opts.seed))),
		engine.WithWallClock(func() time.Time { return start }),
	)
	if err != nil {
		return err
	}

	title := color.New(color.FgCyan, color.Bold)
	title.Printf("Simulating %s in %s steps (seed %d)\n", opts.duration, opts.step, opts.seed)

	var checks []CheckResult
	autopilot := engine.NewAutopilot(eng)
	purchases := 0
	minBalance := math.Inf(1)
	lastLifetime := 0.0
	monotonic := true
	wallStart := time.Now()

	for elapsed := time.Duration(0); elapsed < opts.duration; elapsed += opts.step {
		purchases += len(autopilot.Step())
		for _, g := range eng.State().Golden {
			_, _ = eng.ClickGolden(g.ID)
		}
		if _, err := eng.Tick(opts.step); err != nil {
			checks = append(checks, CheckResult{Name: "Engine invariants", Reason: err.Error()})
			break
		}
		st := eng.State()
		minBalance = math.Min(minBalance, st.Balance)
		if st.LifetimeProduced < lastLifetime {
			monotonic = false
		}
		lastLifetime = st.LifetimeProduced
	}
	wall := time.Since(wallStart)

	if len(checks) == 0 {
		checks = append(checks, CheckResult{Name: "Engine invariants", Passed: true})
	}
	checks = append(checks,
		CheckResult{Name: "Balance never negative", Passed: minBalance >= 0, Reason: fmt.Sprintf("min %g", minBalance)},
		CheckResult{Name: "Lifetime production monotonic", Passed: monotonic},
		checkRoundTrip(eng, cfg.Engine),
	)

	if opts.prestige {
		if gain, err := eng.Prestige(); err != nil {
			checks = append(checks, CheckResult{Name: "Prestige", Reason: err.Error()})
		} else {
			checks = append(checks, CheckResult{Name: "Prestige", Passed: true, Reason: fmt.Sprintf("+%d heavenly units", gain)})
		}
	}

	st := eng.State()
	printProducers(st)

	eventLog.Close()
	_, totals, err := storage.NewReconstructor(eventRepo).GenerateRecap(context.Background(), slot, time.Time{})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Ticks:        %s (%s wall, %s purchases)\n", humanize.Comma(eng.Ticks()), wall.Round(time.Millisecond), humanize.Comma(int64(purchases)))
	fmt.Printf("Balance:      %s\n", logger.Cookies(st.Balance))
	fmt.Printf("Lifetime:     %s\n", logger.Cookies(st.LifetimeProduced))
	fmt.Printf("Rate:         %s/s\n", logger.Cookies(st.Rate))
	fmt.Printf("Achievements: %d, research %d, golden clicks %d\n", len(st.Achievements), len(st.Research.Completed), totals.GoldenClicks)

	if rec := config.Analyze(cfg, metrics.Get().Snapshot()); len(rec.Notes) > 0 {
		fmt.Println()
		color.New(color.FgYellow).Println("Tuning notes:")
		for _, note := range rec.Notes {
			fmt.Println("  - " + note)
		}
	}

	return printChecks(checks)
}

// checkRoundTrip saves eng, loads it into a second engine and compares.
func checkRoundTrip(eng *engine.Engine, cfg config.Engine) CheckResult {
	res := CheckResult{Name: "Save round trip"}
	data, err := eng.Save()
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	snap := eng.Snapshot()
	other, err := engine.NewEngine(eng.Catalog(), cfg, engine.WithWallClock(func() time.Time { return snap.SavedAt() }))
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	if _, err := other.Load(data); err != nil {
		res.Reason = err.Error()
		return res
	}
	a, b := eng.State(), other.State()
	// Timed effects are not saved, so rates only match when none is live.
	rateOK := len(a.Effects) > 0 || approxEqual(a.Rate, b.Rate)
	if !approxEqual(a.Balance, b.Balance) || !rateOK || len(a.Achievements) != len(b.Achievements) {
		res.Reason = fmt.Sprintf("balance %g/%g rate %g/%g", a.Balance, b.Balance, a.Rate, b.Rate)
		return res
	}
	res.Passed = true
	res.Reason = humanize.Bytes(uint64(len(data)))
	return res
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func printProducers(st engine.State) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Producer", "Owned", "Level", "Output/s", "Next cost"}),
	)
	for _, p := range st.Producers {
		if p.Count == 0 {
			continue
		}
		_ = table.Append([]string{
			p.Name,
			humanize.Comma(int64(p.Count)),
			fmt.Sprint(p.Level),
			logger.Cookies(p.Output),
			logger.Cookies(p.NextCost),
		})
	}
	_ = table.Render()
}

func printChecks(checks []CheckResult) error {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Check", "Result", "Detail"}))
	failed := 0
	for _, c := range checks {
		status := pass("PASS")
		if !c.Passed {
			status = fail("FAIL")
			failed++
		}
		_ = table.Append([]string{c.Name, status, c.Reason})
	}
	_ = table.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	color.New(color.FgGreen, color.Bold).Println("All checks passed")
	return nil
}
