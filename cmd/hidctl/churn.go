package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/hidkit/hid"
	"github.com/joshuapare/hidkit/hid/shutdown"
	"github.com/joshuapare/hidkit/internal/logger"
	"github.com/joshuapare/hidkit/pkg/library"
)

var (
	churnConfig   string
	churnCategory string
	churnCount    int
	churnLimit    uint32
	churnLive     int
	churnSeed     uint64
	churnWorkers  int
)

func init() {
	cmd := newChurnCmd()
	cmd.Flags().StringVar(&churnConfig, "config", "", "YAML or TOML config file to overlay on the defaults")
	cmd.Flags().StringVar(&churnCategory, "category", "dataset", "Category to exercise")
	cmd.Flags().IntVar(&churnCount, "count", 10000, "Number of operations to run")
	cmd.Flags().Uint32Var(&churnLimit, "limit", 0, "Override the index limit (small values force wraparound)")
	cmd.Flags().IntVar(&churnLive, "live", 256, "Maximum number of live handles")
	cmd.Flags().Uint64Var(&churnSeed, "seed", 1, "Workload seed")
	cmd.Flags().IntVar(&churnWorkers, "workers", 1, "Number of goroutines sharing the library")
	rootCmd.AddCommand(cmd)
}

func newChurnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "churn",
		Short: "Run a seeded register/reference/release workload",
		Long: `The churn command opens one category and runs a random mix of register,
incref, decref and lookup operations against it. Every minted handle is
checked against the live set, and every lookup against the object it was
registered with. With --workers the operations are split across goroutines
sharing one library. The library is shut down afterwards and the teardown
report printed.

Example:
  hidctl churn --count 50000
  hidctl churn --category attribute --limit 63 --live 32 --seed 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChurn()
		},
	}
}

type churnCounts struct {
	Registered int `json:"registered"`
	IncRefs    int `json:"increfs"`
	DecRefs    int `json:"decrefs"`
	Lookups    int `json:"lookups"`
}

type churnResult struct {
	Category hid.Category `json:"category"`
	Seed     uint64       `json:"seed"`
	Workers  int          `json:"workers"`
	Ops      int          `json:"ops"`
	churnCounts
	Released int               `json:"released"`
	Stats    hid.CategoryStats `json:"stats"`
	Shutdown *shutdown.Report  `json:"shutdown"`
}

const (
	opRegister = iota
	opIncRef
	opLookup
	opDecRef
	numOps
)

func runChurn() error {
	cat, err := hid.ParseCategory(churnCategory)
	if err != nil {
		return err
	}
	if churnCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}
	if churnLive < 1 || churnWorkers < 1 {
		return fmt.Errorf("--live and --workers must be positive")
	}
	cfg, err := library.LoadConfig(churnConfig)
	if err != nil {
		return err
	}
	if churnLimit != 0 {
		cfg.IndexLimit = churnLimit
	}
	cfg.Logger = logger.L

	res := churnResult{Category: cat, Seed: churnSeed, Workers: churnWorkers, Ops: churnCount}
	lib := library.New(cfg)
	err = lib.Init(library.Subsystem{
		Name:     "churn",
		Category: cat,
		Release: func(_ *hid.Registry, _ any) error {
			res.Released++
			return nil
		},
	})
	if err != nil {
		return err
	}

	maxLive := churnLive
	if st := lib.Stats(); len(st) == 1 {
		if span := int(st[0].Limit-st[0].Reserved) + 1; span < maxLive {
			maxLive = span
		}
	}
	printVerbose("Running %d operations on %s (seed %d, %d workers, at most %d live)\n",
		churnCount, cat, churnSeed, churnWorkers, maxLive)

	if churnWorkers > maxLive {
		return fmt.Errorf("--workers %d exceeds the %d live handles available", churnWorkers, maxLive)
	}

	// Workers share the library but keep their own live sets. The owner map
	// spans all of them so a handle minted twice is caught across workers.
	var (
		mu    sync.Mutex
		owner = make(map[hid.Handle]int)
		parts = make([]churnCounts, churnWorkers)
		g     errgroup.Group
	)
	perWorker := churnCount / churnWorkers
	for w := range churnWorkers {
		ops := perWorker
		if w == 0 {
			ops += churnCount % churnWorkers
		}
		cw := &churnWorker{
			lib:     lib,
			cat:     cat,
			rng:     rand.New(rand.NewPCG(churnSeed+uint64(w), churnSeed^0x9e3779b97f4a7c15)),
			maxLive: maxLive / churnWorkers,
			mu:      &mu,
			owner:   owner,
		}
		g.Go(func() error {
			err := cw.run(w, ops)
			parts[w] = cw.counts
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, c := range parts {
		res.Registered += c.Registered
		res.IncRefs += c.IncRefs
		res.DecRefs += c.DecRefs
		res.Lookups += c.Lookups
	}

	if st := lib.Stats(); len(st) == 1 {
		res.Stats = st[0]
	}
	if verbose && !quiet && res.Stats.Active <= 64 {
		if err := lib.Do(func(reg *hid.Registry) error { return reg.Dump(os.Stdout, cat) }); err != nil {
			return err
		}
	}
	res.Shutdown = lib.Shutdown()

	if jsonOut {
		return printJSON(res)
	}
	printChurn(res)
	if !res.Shutdown.Clean() {
		return fmt.Errorf("shutdown left %d categories open", len(res.Shutdown.Undrained))
	}
	return nil
}

// churnWorker runs one goroutine's share of the workload.
type churnWorker struct {
	lib     *library.Library
	cat     hid.Category
	rng     *rand.Rand
	maxLive int
	live    []hid.Handle
	counts  churnCounts

	mu    *sync.Mutex
	owner map[hid.Handle]int
}

func (cw *churnWorker) run(worker, ops int) error {
	for i := range ops {
		op := cw.rng.IntN(numOps)
		if len(cw.live) == 0 {
			op = opRegister
		} else if op == opRegister && len(cw.live) >= cw.maxLive {
			op = opDecRef
		}
		if err := cw.step(op); err != nil {
			return fmt.Errorf("worker %d op %d: %w", worker, i, err)
		}
	}
	return nil
}

func (cw *churnWorker) step(op int) error {
	switch op {
	case opRegister:
		id := cw.counts.Registered
		h, err := cw.lib.Register(cw.cat, id)
		if err != nil {
			return err
		}
		cw.mu.Lock()
		_, dup := cw.owner[h]
		cw.owner[h] = id
		cw.mu.Unlock()
		if dup {
			return fmt.Errorf("handle %s minted while still live", h)
		}
		cw.live = append(cw.live, h)
		cw.counts.Registered++

	case opIncRef:
		h := cw.live[cw.rng.IntN(len(cw.live))]
		if _, err := cw.lib.IncRef(h); err != nil {
			return err
		}
		cw.counts.IncRefs++

	case opLookup:
		h := cw.live[cw.rng.IntN(len(cw.live))]
		cw.mu.Lock()
		want := cw.owner[h]
		cw.mu.Unlock()
		obj, ok := cw.lib.Lookup(h, cw.cat)
		if !ok || obj != want {
			return fmt.Errorf("lookup of %s returned %v, want %d", h, obj, want)
		}
		cw.counts.Lookups++

	case opDecRef:
		j := cw.rng.IntN(len(cw.live))
		h := cw.live[j]
		// Drop ownership first: once the count reaches zero another worker
		// may be handed the same index.
		n, err := cw.lib.RefCount(h)
		if err != nil {
			return err
		}
		if n == 1 {
			cw.mu.Lock()
			delete(cw.owner, h)
			cw.mu.Unlock()
		}
		if _, err := cw.lib.DecRef(h); err != nil {
			return err
		}
		cw.counts.DecRefs++
		if n == 1 {
			cw.live[j] = cw.live[len(cw.live)-1]
			cw.live = cw.live[:len(cw.live)-1]
		}
	}
	return nil
}

func printChurn(res churnResult) {
	printInfo("Churn: %s, seed %d\n", res.Category, res.Seed)
	printInfo("  Operations: %s\n", formatNumber(res.Ops))
	printInfo("  Registered: %s\n", formatNumber(res.Registered))
	printInfo("  IncRefs:    %s\n", formatNumber(res.IncRefs))
	printInfo("  DecRefs:    %s\n", formatNumber(res.DecRefs))
	printInfo("  Lookups:    %s\n", formatNumber(res.Lookups))
	printInfo("  Released:   %s\n\n", formatNumber(res.Released))

	st := res.Stats
	printInfo("Registry:\n")
	printInfo("  Live at end:   %s\n", formatNumber(st.Active))
	printInfo("  Index range:   %d-%d\n", st.Reserved, st.Limit)
	printInfo("  Next index:    %d\n", st.Next)
	printInfo("  Wrapped:       %t\n", st.Wrapped)
	printInfo("  Buckets:       %d (longest chain %d)\n\n", st.Buckets, st.LongestChain)

	status := color.New(color.FgGreen).Sprint("clean")
	if !res.Shutdown.Clean() {
		status = color.New(color.FgRed).Sprint("undrained")
	}
	printInfo("%s [%s]\n", res.Shutdown, status)
}
