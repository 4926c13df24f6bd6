package temporal

import (
	"encoding/json"
	"fmt"
	"math"
)

// DispatchableGraph is the APSP-tight form of an STN: every entry of the
// distance matrix is minimal, so execution bounds can be read off directly.
// It exists only after a successful solve.
type DispatchableGraph struct {
	tasks []string
	dist  [][]float64
}

// Tasks returns the task ids in position order.
func (g *DispatchableGraph) Tasks() []string {
	return append([]string(nil), g.tasks...)
}

// GetTime returns the bound on the named timepoint of the task, in seconds
// from the zero timepoint. lower selects the earliest time; otherwise the
// latest time is returned, which may be +Inf.
func (g *DispatchableGraph) GetTime(taskID, timepoint string, lower bool) (float64, error) {
	position := 0
	for i, id := range g.tasks {
		if id == taskID {
			position = i + 1
			break
		}
	}
	if position == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	var offset int
	switch timepoint {
	case TimepointNavigation:
		offset = 0
	case TimepointStart:
		offset = 1
	case TimepointFinish:
		offset = 2
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimepoint, timepoint)
	}

	node := nodeIndex(position, offset)
	if lower {
		return -g.dist[node][0], nil
	}
	return g.dist[0][node], nil
}

// Makespan returns the earliest completion time of the whole schedule: the
// earliest finish of the last task. Zero for an empty graph.
func (g *DispatchableGraph) Makespan() float64 {
	if len(g.tasks) == 0 {
		return 0
	}
	finish := nodeIndex(len(g.tasks), 2)
	return -g.dist[finish][0]
}

// TotalSlack sums the finite execution windows (latest − earliest) over all
// timepoints. Larger slack means the schedule absorbs more delay.
func (g *DispatchableGraph) TotalSlack() float64 {
	var slack float64
	for node := 1; node < len(g.dist); node++ {
		ub := g.dist[0][node]
		lb := -g.dist[node][0]
		if !math.IsInf(ub, 1) {
			slack += ub - lb
		}
	}
	return slack
}

// IdleTime sums the gaps between consecutive tasks at their earliest times:
// time a robot would spend waiting between a finish and the next navigation
// start.
func (g *DispatchableGraph) IdleTime() float64 {
	var idle float64
	for p := 2; p <= len(g.tasks); p++ {
		prevFinish := -g.dist[nodeIndex(p-1, 2)][0]
		nav := -g.dist[nodeIndex(p, 0)][0]
		if gap := nav - prevFinish; gap > 0 {
			idle += gap
		}
	}
	return idle
}

// Clone returns a deep copy of the graph.
func (g *DispatchableGraph) Clone() *DispatchableGraph {
	dist := make([][]float64, len(g.dist))
	for i, row := range g.dist {
		dist[i] = append([]float64(nil), row...)
	}
	return &DispatchableGraph{tasks: append([]string(nil), g.tasks...), dist: dist}
}

type dispatchableGraphJSON struct {
	Tasks     []string    `json:"tasks"`
	Distances [][]Seconds `json:"distances"`
}

func (g *DispatchableGraph) MarshalJSON() ([]byte, error) {
	doc := dispatchableGraphJSON{Tasks: g.tasks, Distances: make([][]Seconds, len(g.dist))}
	for i, row := range g.dist {
		doc.Distances[i] = make([]Seconds, len(row))
		for j, v := range row {
			doc.Distances[i][j] = Seconds(v)
		}
	}
	return json.Marshal(doc)
}

func (g *DispatchableGraph) UnmarshalJSON(data []byte) error {
	var doc dispatchableGraphJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	g.tasks = doc.Tasks
	g.dist = make([][]float64, len(doc.Distances))
	for i, row := range doc.Distances {
		g.dist[i] = make([]float64, len(row))
		for j, v := range row {
			g.dist[i][j] = float64(v)
		}
	}
	return nil
}
