// Package temporal implements the Simple Temporal Network behind each
// robot's timetable and its APSP-minimised dispatchable form.
//
// The network is kept as an ordered list of task entries; the distance graph
// is derived from it on every solve. Node 0 is the zero timepoint, and the
// task at position p contributes three timepoints (navigation, start,
// finish) at indices 3(p-1)+1..3(p-1)+3. An edge u→v with weight w encodes
// t_v − t_u ≤ w; +Inf means unconstrained.
package temporal

import (
	"encoding/json"
	"math"
)

// Timepoint names of the three nodes each task contributes.
const (
	TimepointNavigation = "navigation"
	TimepointStart      = "start"
	TimepointFinish     = "finish"
)

// sigmaFactor widens duration distributions to [mean−kσ, mean+kσ].
const sigmaFactor = 2.0

// Distribution is a normal duration distribution in seconds.
type Distribution struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// StdDev returns the standard deviation of the distribution.
func (d Distribution) StdDev() float64 {
	return math.Sqrt(d.Variance)
}

// bounds returns the [lb, ub] interval the distribution constrains a
// duration to. The lower bound never drops below zero.
func (d Distribution) bounds() (float64, float64) {
	sigma := d.StdDev()
	return math.Max(0, d.Mean-sigmaFactor*sigma), d.Mean + sigmaFactor*sigma
}

// TaskEntry holds one task's constraints, already translated to seconds from
// the zero timepoint. Latest times may be +Inf.
type TaskEntry struct {
	TaskID             string       `json:"task_id"`
	NavigationEarliest Seconds      `json:"r_earliest_navigation"`
	NavigationLatest   Seconds      `json:"r_latest_navigation"`
	StartEarliest      Seconds      `json:"r_earliest_start"`
	StartLatest        Seconds      `json:"r_latest_start"`
	FinishEarliest     Seconds      `json:"r_earliest_finish"`
	FinishLatest       Seconds      `json:"r_latest_finish"`
	TravelTime         Distribution `json:"travel_time"`
	WorkTime           Distribution `json:"work_time"`
}

// STN is the constraint network of one robot's committed schedule. Task
// positions form a contiguous 1..n prefix in insertion order.
type STN struct {
	entries []TaskEntry
}

// NewSTN returns an empty network containing only the zero timepoint.
func NewSTN() *STN {
	return &STN{}
}

// Len returns the number of tasks in the network.
func (s *STN) Len() int {
	return len(s.entries)
}

// Insert splices the task entry in at the given position, shifting later
// tasks one position up. Valid positions are 1..n+1.
func (s *STN) Insert(entry TaskEntry, position int) error {
	if position < 1 || position > len(s.entries)+1 {
		return &InvalidPositionError{Position: position, Max: len(s.entries) + 1}
	}
	i := position - 1
	s.entries = append(s.entries, TaskEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry
	return nil
}

// Remove is the inverse of Insert: it drops the task at the given position
// and re-links its neighbours. Valid positions are 1..n.
func (s *STN) Remove(position int) error {
	if position < 1 || position > len(s.entries) {
		return &InvalidPositionError{Position: position, Max: len(s.entries)}
	}
	i := position - 1
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// Tasks returns the task ids in position order.
func (s *STN) Tasks() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.TaskID
	}
	return ids
}

// PositionOf returns the 1-based position of the task, or false when the
// task is not in the network.
func (s *STN) PositionOf(taskID string) (int, bool) {
	for i, e := range s.entries {
		if e.TaskID == taskID {
			return i + 1, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the network.
func (s *STN) Clone() *STN {
	return &STN{entries: append([]TaskEntry(nil), s.entries...)}
}

type stnJSON struct {
	Tasks []TaskEntry `json:"tasks"`
}

func (s *STN) MarshalJSON() ([]byte, error) {
	return json.Marshal(stnJSON{Tasks: s.entries})
}

func (s *STN) UnmarshalJSON(data []byte) error {
	var doc stnJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.entries = doc.Tasks
	return nil
}

// nodeCount returns the number of timepoints including the zero timepoint.
func (s *STN) nodeCount() int {
	return 3*len(s.entries) + 1
}

// nodeIndex maps a 1-based position and timepoint offset (0=navigation,
// 1=start, 2=finish) to a matrix index.
func nodeIndex(position, offset int) int {
	return 3*(position-1) + 1 + offset
}

// distanceMatrix builds the distance-graph form of the network: d[u][v] is
// the tightest known upper bound on t_v − t_u, +Inf when unconstrained.
func (s *STN) distanceMatrix() [][]float64 {
	n := s.nodeCount()
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			if i != j {
				d[i][j] = math.Inf(1)
			}
		}
	}

	tighten := func(u, v int, w float64) {
		if w < d[u][v] {
			d[u][v] = w
		}
	}
	window := func(node int, lb, ub float64) {
		tighten(0, node, ub)
		tighten(node, 0, -lb)
	}

	for p := 1; p <= len(s.entries); p++ {
		e := s.entries[p-1]
		nav := nodeIndex(p, 0)
		start := nodeIndex(p, 1)
		finish := nodeIndex(p, 2)

		window(nav, float64(e.NavigationEarliest), float64(e.NavigationLatest))
		window(start, float64(e.StartEarliest), float64(e.StartLatest))
		window(finish, float64(e.FinishEarliest), float64(e.FinishLatest))

		travelLB, travelUB := e.TravelTime.bounds()
		tighten(nav, start, travelUB)
		tighten(start, nav, -travelLB)

		workLB, workUB := e.WorkTime.bounds()
		tighten(start, finish, workUB)
		tighten(finish, start, -workLB)

		// Sequencing: navigation may not begin before the previous finish.
		if p > 1 {
			prevFinish := nodeIndex(p-1, 2)
			tighten(nav, prevFinish, 0)
		}
	}

	return d
}
