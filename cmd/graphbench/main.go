package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loomworks/loom/weft"
	"github.com/olekukonko/tablewriter"
)

func main() {
	log.Print("Starting weft graph benchmark, please wait...")
	defer log.Print("Finished weft graph benchmark")

	perfTestCfgs := []benchmarkTestConfig{
		{
			name:           "simple component",
			width:          10,
			staticFraction: 1,
			nSources:       2,
			totalLayers:    5,
			readFraction:   0.2,
			iterations:     600000,
		},
		{
			name:           "dynamic component",
			width:          10,
			totalLayers:    10,
			staticFraction: 0.75,
			nSources:       6,
			readFraction:   0.2,
			iterations:     15000,
		},
		{
			name:           "large web app",
			width:          1000,
			totalLayers:    12,
			staticFraction: 0.95,
			nSources:       4,
			readFraction:   1,
			iterations:     7000,
		},
		{
			name:           "wide dense",
			width:          1000,
			totalLayers:    5,
			staticFraction: 1,
			nSources:       25,
			readFraction:   1,
			iterations:     3000,
		},
		{
			name:           "deep",
			width:          5,
			totalLayers:    500,
			staticFraction: 1,
			nSources:       3,
			readFraction:   1,
			iterations:     500,
		},
		{
			name:           "very dynamic",
			width:          100,
			totalLayers:    15,
			staticFraction: 0.5,
			nSources:       6,
			readFraction:   1,
			iterations:     2000,
		},
	}

	type results struct {
		sum      int
		count    int64
		duration time.Duration
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"framework", "size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "updateRate", "title",
	})

	testRepeats := 5
	for _, cfg := range perfTestCfgs {
		log.Printf("Running '%s' config", cfg.name)
		counter := new(int64)
		graph := benchmarkMakeGraph(&benchmarkMakeGraphConfig{
			counter:        counter,
			width:          cfg.width,
			totalLayers:    cfg.totalLayers,
			nSources:       cfg.nSources,
			staticFraction: cfg.staticFraction,
		})

		runOnce := func() int {
			return benchmarkRunGraph(&benchmarkRunGraphConfig{
				graph:        graph,
				iterations:   cfg.iterations,
				readFraction: cfg.readFraction,
			})
		}
		// run once to warm up
		runOnce()

		bestResult := &results{
			duration: time.Hour,
		}

		for i := 0; i < testRepeats; i++ {
			log.Printf("Running '%s' config, iteration %d/%d %d%%", cfg.name, i+1, testRepeats, (i+1)*100/testRepeats)
			*counter = 0
			start := time.Now()
			sum := runOnce()
			duration := time.Since(start)

			if duration < bestResult.duration {
				bestResult.duration = duration
				bestResult.sum = sum
				bestResult.count = *counter
			}
		}

		makeTitle := func() string {
			sb := strings.Builder{}
			sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
			if cfg.staticFraction < 1 {
				sb.WriteString(" dynamic")
			}
			if cfg.readFraction < 1 {
				sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*cfg.readFraction))
			}
			return sb.String()
		}

		updateRate := float64(bestResult.count) / (float64(bestResult.duration) / float64(time.Millisecond))

		table.Append([]string{
			"weft",
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.readFraction),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(cfg.iterations),
			cfg.name,
			fmt.Sprint(bestResult.duration),
			humanize.Comma(int64(updateRate)),
			makeTitle(),
		})
	}
	table.Render()
}

type benchmarkTestConfig struct {
	name           string  // friendly name for the test, should be unique
	width          int64   // width of dependency graph to construct
	totalLayers    int64   // depth of dependency graph to construct
	staticFraction float64 // fraction of nodes with a fixed read set
	nSources       int64   // number of sources read by each node
	readFraction   float64 // fraction of last-layer nodes read each iteration
	iterations     int64   // number of test iterations
}

// node is either a source box or a lazy watcher layered on top of one.
type node struct {
	box     *weft.Box[int]
	watcher *weft.Watcher
}

func (n *node) read() int {
	if n.box != nil {
		return n.box.Value()
	}
	v, err := n.watcher.Value()
	if err != nil {
		log.Fatal(err)
	}
	return v.(int)
}

type benchmarkGraph struct {
	sys     *weft.System
	sources []*node
	layers  [][]*node
}

type benchmarkMakeGraphConfig struct {
	counter                      *int64
	width, totalLayers, nSources int64
	staticFraction               float64
}

func benchmarkMakeGraph(cfg *benchmarkMakeGraphConfig) *benchmarkGraph {
	sys := weft.NewSystem(func(from *weft.Watcher, err error) {
		log.Fatal(err)
	})
	sc := weft.NewScope(sys, nil)

	sources := make([]*node, cfg.width)
	for i := range sources {
		sources[i] = &node{box: weft.NewBox(sys, i)}
	}
	graph := &benchmarkGraph{sys: sys, sources: sources}
	graph.layers = makeBenchmarkDependentRows(&benchmarkMakeDependentRowsConfig{
		scope:          sc,
		sources:        sources,
		numRows:        cfg.totalLayers - 1,
		counter:        cfg.counter,
		staticFraction: cfg.staticFraction,
		nSources:       cfg.nSources,
	})

	return graph
}

type benchmarkRunGraphConfig struct {
	graph        *benchmarkGraph
	iterations   int64
	readFraction float64
}

// Execute the graph by writing one of the sources and reading some or all
// of the leaves. Returns the sum of all leaf values.
func benchmarkRunGraph(cfg *benchmarkRunGraphConfig) int {
	random := rand.New(rand.NewSource(0))
	leaves := cfg.graph.layers[len(cfg.graph.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	readLeaves := benchmarkRemoveElems(leaves, skipCount, random)

	for i := 0; i < int(cfg.iterations); i++ {
		sourceDex := i % len(cfg.graph.sources)
		cfg.graph.sources[sourceDex].box.SetValue(i + sourceDex)
		cfg.graph.sys.Tick()

		for _, leaf := range readLeaves {
			leaf.read()
		}
	}

	sum := 0
	for _, leaf := range readLeaves {
		sum += leaf.read()
	}
	return sum
}

func benchmarkRemoveElems(src []*node, rmCount int, rand *rand.Rand) []*node {
	copyWithRemovals := make([]*node, len(src))
	copy(copyWithRemovals, src)
	for i := 0; i < rmCount; i++ {
		rmDex := rand.Intn(len(copyWithRemovals))
		copyWithRemovals[rmDex] = copyWithRemovals[len(copyWithRemovals)-1]
		copyWithRemovals = copyWithRemovals[:len(copyWithRemovals)-1]
	}
	return copyWithRemovals
}

type benchmarkMakeDependentRowsConfig struct {
	scope             *weft.Scope
	sources           []*node
	numRows, nSources int64
	counter           *int64
	staticFraction    float64
}

func makeBenchmarkDependentRows(cfg *benchmarkMakeDependentRowsConfig) [][]*node {
	prevRow := make([]*node, len(cfg.sources))
	copy(prevRow, cfg.sources)

	random := rand.New(rand.NewSource(0))
	rows := make([][]*node, cfg.numRows)
	for l := int64(0); l < cfg.numRows; l++ {
		row := makeBenchmarkRow(&benchmarkRowConfig{
			scope:          cfg.scope,
			sources:        prevRow,
			counter:        cfg.counter,
			staticFraction: cfg.staticFraction,
			nSources:       cfg.nSources,
			rand:           random,
		})
		rows[l] = row
		prevRow = row
	}

	return rows
}

type benchmarkRowConfig struct {
	scope          *weft.Scope
	sources        []*node
	counter        *int64
	staticFraction float64
	nSources       int64
	rand           *rand.Rand
}

func makeBenchmarkRow(cfg *benchmarkRowConfig) []*node {
	row := make([]*node, len(cfg.sources))

	for myDex := range cfg.sources {
		mySources := make([]*node, 0, cfg.nSources)
		for sourceDex := 0; sourceDex < int(cfg.nSources); sourceDex++ {
			x := (myDex + sourceDex) % len(cfg.sources)
			mySources = append(mySources, cfg.sources[x])
		}

		var getter weft.Getter
		staticNode := cfg.rand.Float64() < cfg.staticFraction
		if staticNode {
			// static node, always reads every source
			getter = func() (any, error) {
				*cfg.counter++
				sum := 0
				for _, source := range mySources {
					sum += source.read()
				}
				return sum, nil
			}
		} else {
			// dynamic node, drops one source depending on the first read
			first := mySources[0]
			tail := mySources[1:]
			getter = func() (any, error) {
				*cfg.counter++
				sum := first.read()
				shouldDrop := sum&0x1 > 0
				dropDex := sum % len(tail)

				for i := 0; i < len(tail); i++ {
					if shouldDrop && i == dropDex {
						continue
					}
					sum += tail[i].read()
				}
				return sum, nil
			}
		}

		w, err := weft.NewWatcher(cfg.scope, getter, nil, weft.WatchOptions{Lazy: true})
		if err != nil {
			log.Fatal(err)
		}
		row[myDex] = &node{watcher: w}
	}

	return row
}
