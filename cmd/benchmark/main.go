package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/loomworks/loom/weft"
)

var (
	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100, 1_000}
	iters = 100
)

func main() {
	flag.Parse()

	f, err := os.Create("default.pgo")
	if err != nil {
		log.Fatal(err)
	}
	pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	log.Printf("warming up")

	benchmarkPropagation(true)
	benchmarkDeepWatch(true)
}

// benchmarkPropagation builds w parallel chains of h lazy watchers hanging
// off one source box, with a deferred watcher at the end of each chain, and
// measures write-to-flush latency.
func benchmarkPropagation(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("weft propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			sys := weft.NewSystem(func(from *weft.Watcher, err error) {
				log.Panic(err)
			})
			sc := weft.NewScope(sys, nil)
			src := weft.NewBox(sys, 1)

			for i := 0; i < w; i++ {
				read := func() (any, error) { return src.Value(), nil }
				for j := 0; j < h; j++ {
					prev := read
					node, err := weft.NewWatcher(sc, weft.Getter(func() (any, error) {
						v, err := prev()
						if err != nil {
							return nil, err
						}
						return v.(int) + 1, nil
					}), nil, weft.WatchOptions{Lazy: true})
					if err != nil {
						log.Fatal(err)
					}
					read = node.Value
				}

				leaf := read
				if _, err := weft.NewWatcher(sc, weft.Getter(func() (any, error) {
					return leaf()
				}), nil, weft.WatchOptions{}); err != nil {
					log.Fatal(err)
				}
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				src.SetValue(src.Peek() + 1)
				sys.Tick()
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

// benchmarkDeepWatch measures deep-touch traversal over nested reactive
// boxes of varying fanout.
func benchmarkDeepWatch(shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("weft deep watch")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, fanout := range []int{10, 100, 1_000} {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		sys := weft.NewSystem(func(from *weft.Watcher, err error) {
			log.Panic(err)
		})
		sc := weft.NewScope(sys, nil)

		leaves := make([]*weft.Box[int], fanout)
		tree := map[string]any{}
		for i := 0; i < fanout; i++ {
			leaves[i] = weft.NewBox(sys, i)
			tree[fmt.Sprintf("leaf%d", i)] = leaves[i]
		}
		root := weft.NewBox(sys, tree)

		fired := 0
		if _, err := weft.NewWatcher(sc, weft.Getter(func() (any, error) {
			return root.Value(), nil
		}), func(newVal, oldVal any) error {
			fired++
			return nil
		}, weft.WatchOptions{Deep: true}); err != nil {
			log.Fatal(err)
		}

		for i := 0; i < iters; i++ {
			start := time.Now()
			leaves[i%fanout].SetValue(i)
			sys.Tick()
			tach.AddTime(time.Since(start))
		}

		calc := tach.Calc()
		tbl.AppendRows([]table.Row{
			{
				fmt.Sprintf("deep: fanout %d", fanout),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			},
		})
	}

	if shouldRender {
		tbl.Render()
	}
}
