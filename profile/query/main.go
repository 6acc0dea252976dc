// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"github.com/pkg/profile"

	"github.com/jpteb/quartz"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	rounds := 50
	iters := 10000
	entities := 100000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := quartz.NewWorld()
		for i := range numEntities {
			quartz.Spawn2(w, comp1{V: int64(i)}, comp2{V: int64(i)})
		}
		query := quartz.NewQueryMut2[comp1, comp2](w)
		for range iters {
			query.Reset()
			for query.Next() {
				c1, c2 := query.Get()
				c1.V += c2.V
				c1.W += c2.W
			}
		}
	}
}
