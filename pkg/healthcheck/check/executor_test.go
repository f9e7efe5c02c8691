package check_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/metrics"

	. "github.com/onsi/gomega"
)

func newFuncCheck(id string, requires check.Requirement, run check.RunFunc) check.Check {
	return check.New(check.BaseCheck{
		CheckSuite:       "test",
		CheckID:          id,
		CheckName:        id,
		CheckDescription: "check " + id,
		CheckRemedy:      "fix " + id,
		Requirements:     requires,
	}, run)
}

type collector struct {
	results []*check.Result
}

func (c *collector) collect(r *check.Result) {
	c.results = append(c.results, r)
}

func (c *collector) byID() map[string]*check.Result {
	out := make(map[string]*check.Result, len(c.results))
	for _, r := range c.results {
		out[r.CheckID] = r
	}

	return out
}

func TestExecutor_MixedVerdicts(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	ctx := t.Context()

	checkA := newFuncCheck("A", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		time.Sleep(20 * time.Millisecond)

		return check.Succeeded("", map[string]any{"ok": true}), nil
	})
	checkB := newFuncCheck("B", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return nil, errors.New("boom")
	})
	checkC := newFuncCheck("C", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.NoResult("", nil), nil
	})

	for _, c := range []check.Check{checkA, checkB, checkC} {
		g.Expect(executor.Execute(ctx, c, nil)).To(Succeed())
	}

	g.Expect(executor.Wait()).To(Equal(3))
	g.Expect(col.results).To(HaveLen(3))

	results := col.byID()
	g.Expect(results["A"].Verdict).To(Equal(check.VerdictSucceeded))
	g.Expect(results["A"].Description).To(Equal("check A"))
	g.Expect(results["B"].Verdict).To(Equal(check.VerdictError))
	g.Expect(results["B"].Details).To(HaveKeyWithValue("Error", "boom"))
	g.Expect(results["C"].Verdict).To(Equal(check.VerdictNoResult))
	g.Expect(results["C"].Details).To(BeEmpty())

	// A slept, so it completes last.
	g.Expect(col.results[2].CheckID).To(Equal("A"))
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	ctx := t.Context()

	panicky := newFuncCheck("P", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		panic("unexpected nil map")
	})

	g.Expect(executor.Execute(ctx, panicky, nil)).To(Succeed())
	g.Expect(executor.Wait()).To(Equal(1))
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictError))
	g.Expect(col.results[0].Details).To(HaveKey("PanicError"))

	// executor remains usable
	ok := newFuncCheck("OK", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	})

	g.Expect(executor.Execute(ctx, ok, nil)).To(Succeed())
	g.Expect(executor.Wait()).To(Equal(1))
	g.Expect(col.results).To(HaveLen(2))
	g.Expect(col.results[1].Verdict).To(Equal(check.VerdictSucceeded))
}

func TestExecutor_NilResultIsNoResult(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	empty := newFuncCheck("E", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return nil, nil //nolint:nilnil
	})

	g.Expect(executor.Execute(t.Context(), empty, nil)).To(Succeed())
	executor.Wait()
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictNoResult))
}

func TestExecutor_MissingCapabilityIsSkipped(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect, check.WithCapabilities(check.RequiresAPI))
	defer executor.Shutdown()

	var ran atomic.Bool
	remote := newFuncCheck("R", check.RequiresAPI|check.RequiresRemote, func(context.Context, check.Params) (*check.Result, error) {
		ran.Store(true)

		return check.Succeeded("", nil), nil
	})

	g.Expect(executor.Execute(t.Context(), remote, nil)).To(Succeed())
	executor.Wait()

	g.Expect(ran.Load()).To(BeFalse())
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictSkipped))
	g.Expect(col.results[0].Details).To(HaveKeyWithValue("reason", "missing remote configuration"))
}

func TestExecutor_FailedResultGetsRemedy(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	failing := newFuncCheck("F", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Failed("", map[string]any{"nodes": 2}), nil
	})

	g.Expect(executor.Execute(t.Context(), failing, nil)).To(Succeed())
	executor.Wait()

	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictFailed))
	g.Expect(col.results[0].Remedy).To(Equal("fix F"))
	g.Expect(col.results[0].Suite).To(Equal("test"))
}

func TestExecutor_TimeoutFreesSlot(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect,
		check.WithWorkers(1),
		check.WithTimeout(20*time.Millisecond),
	)
	defer executor.Shutdown()

	release := make(chan struct{})
	defer close(release)

	hung := newFuncCheck("H", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		<-release

		return check.Succeeded("", nil), nil
	})
	quick := newFuncCheck("Q", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	})

	ctx := t.Context()
	g.Expect(executor.Execute(ctx, hung, nil)).To(Succeed())
	g.Expect(executor.Execute(ctx, quick, nil)).To(Succeed())

	done := make(chan int)
	go func() { done <- executor.Wait() }()
	g.Eventually(done).WithTimeout(2 * time.Second).Should(Receive(Equal(2)))

	results := col.byID()
	g.Expect(results["H"].Verdict).To(Equal(check.VerdictError))
	g.Expect(results["H"].Details).To(HaveKeyWithValue("Error", check.ErrCheckTimeout.Error()))
	g.Expect(results["Q"].Verdict).To(Equal(check.VerdictSucceeded))
}

func TestExecutor_BoundedParallelism(t *testing.T) {
	g := NewWithT(t)

	executor := check.NewExecutor(nil, check.WithWorkers(3))
	defer executor.Shutdown()

	var running, peak atomic.Int32
	body := func(context.Context, check.Params) (*check.Result, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)

		return check.Succeeded("", nil), nil
	}

	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		g.Expect(executor.Execute(t.Context(), newFuncCheck(id, check.RequiresNothing, body), nil)).To(Succeed())
	}

	g.Expect(executor.Wait()).To(Equal(9))
	g.Expect(peak.Load()).To(BeNumerically("<=", 3))
	g.Expect(peak.Load()).To(BeNumerically(">=", 1))
}

func TestExecutor_WaitOnlyCoversNewWork(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	ok := newFuncCheck("OK", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	})

	g.Expect(executor.Execute(t.Context(), ok, nil)).To(Succeed())
	g.Expect(executor.Execute(t.Context(), ok, nil)).To(Succeed())
	g.Expect(executor.Wait()).To(Equal(2))
	g.Expect(executor.Wait()).To(Equal(0))
	g.Expect(col.results).To(HaveLen(2))
}

func TestExecutor_DoneFuncRunsPerTask(t *testing.T) {
	g := NewWithT(t)

	executor := check.NewExecutor(nil)
	defer executor.Shutdown()

	var mu sync.Mutex
	var seen []string

	done := func(r *check.Result) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, r.CheckID)
	}

	for _, id := range []string{"X", "Y"} {
		c := newFuncCheck(id, check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
			return check.Succeeded("", nil), nil
		})
		g.Expect(executor.Execute(t.Context(), c, nil, check.WithDoneFunc(done))).To(Succeed())
	}

	executor.Wait()
	g.Expect(seen).To(ConsistOf("X", "Y"))
}

func TestExecutor_PanickingDoneFuncStillDelivers(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	c := newFuncCheck("P", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	})

	done := func(*check.Result) {
		panic("callback failed")
	}

	g.Expect(executor.Execute(t.Context(), c, nil, check.WithDoneFunc(done))).To(Succeed())
	g.Expect(executor.Wait()).To(Equal(1))
	g.Expect(col.results).To(HaveLen(1))
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictSucceeded))
}

func TestExecutor_ParamsArePassed(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	c := newFuncCheck("P", check.RequiresNothing, func(_ context.Context, params check.Params) (*check.Result, error) {
		return check.FromBool(params["min_nodes"] == 3, "", nil), nil
	})

	g.Expect(executor.Execute(t.Context(), c, check.Params{"min_nodes": 3})).To(Succeed())
	executor.Wait()
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictSucceeded))
}

func TestExecutor_ExecuteSuite(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	m := metrics.New()
	executor := check.NewExecutor(col.collect, check.WithMetrics(m))
	defer executor.Shutdown()

	ok := func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	}

	suite := &check.BaseSuite{
		SuiteName: "test",
		SuiteChecks: []check.Check{
			newFuncCheck("S1", check.RequiresNothing, ok),
			newFuncCheck("S2", check.RequiresNothing, ok),
		},
	}

	g.Expect(executor.ExecuteSuite(t.Context(), suite, nil)).To(Succeed())
	g.Expect(executor.Wait()).To(Equal(2))
}

func TestExecutor_ShutdownRejectsSubmissions(t *testing.T) {
	g := NewWithT(t)

	executor := check.NewExecutor(nil)
	executor.Shutdown()
	executor.Shutdown()

	c := newFuncCheck("Z", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return check.Succeeded("", nil), nil
	})

	err := executor.Execute(t.Context(), c, nil)
	g.Expect(err).To(MatchError(check.ErrExecutorShutdown))
}

func TestExecutor_InvalidVerdictIsError(t *testing.T) {
	g := NewWithT(t)

	col := &collector{}
	executor := check.NewExecutor(col.collect)
	defer executor.Shutdown()

	bogus := newFuncCheck("V", check.RequiresNothing, func(context.Context, check.Params) (*check.Result, error) {
		return &check.Result{Verdict: "MAYBE"}, nil
	})

	g.Expect(executor.Execute(t.Context(), bogus, nil)).To(Succeed())
	executor.Wait()
	g.Expect(col.results[0].Verdict).To(Equal(check.VerdictError))
}
