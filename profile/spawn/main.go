// Profiling:
// go build ./profile/spawn
// go tool pprof -http=":8000" -nodefraction=0.001 ./spawn mem.pprof

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
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := quartz.NewWorld()
		for range iters {
			ents := make([]quartz.Entity, 0, numEntities)
			for i := range numEntities {
				ents = append(ents, quartz.Spawn2(w, comp1{V: int64(i)}, comp2{W: int64(i)}))
			}
			for _, e := range ents {
				w.Despawn(e)
			}
		}
	}
}
