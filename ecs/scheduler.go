package ecs

import (
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"time"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int           `json:"system_count"`
	TotalExecutions int64         `json:"total_executions"`
	Systems         []SystemStats `json:"systems"`
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string        `json:"name"`
	Group          GroupID       `json:"group"`
	ExecutionCount int64         `json:"execution_count"`
	MinDuration    time.Duration `json:"min_duration"`
	MaxDuration    time.Duration `json:"max_duration"`
	AvgDuration    time.Duration `json:"avg_duration"`
	LastDuration   time.Duration `json:"last_duration"`
	TotalDuration  time.Duration `json:"total_duration"`
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (s *systemStatsInternal) record(duration time.Duration) {
	s.executionCount++
	s.lastDuration = duration
	s.totalDuration += duration

	if duration < s.minDuration {
		s.minDuration = duration
	}
	if duration > s.maxDuration {
		s.maxDuration = duration
	}
}

type systemRecord struct {
	fn    System
	name  string
	group GroupID
	stats *systemStatsInternal
}

// groupDescriptor marks the run of one group inside the system table.
type groupDescriptor struct {
	start uint32
	count uint32
}

// systemTable keeps every registered system in one slice, with each group's systems
// in a contiguous run and in registration order.
type systemTable struct {
	records  []systemRecord
	groups   []groupDescriptor
	capacity uint32
}

func (t *systemTable) init(groups []groupDescriptor, capacity uint32) {
	t.records = make([]systemRecord, 0, capacity)
	t.groups = groups
	t.capacity = capacity
	clear(t.groups)
}

func systemName(fn System) string {
	return filepath.Base(runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name())
}

// register appends fn to the end of its group's run. Systems registered after that run
// shift right by one, and so does the start of every group behind the insertion point.
func (t *systemTable) register(name string, fn System, group GroupID) {
	if uint32(len(t.records)) == t.capacity {
		fatalf(ErrCapacityExceeded, "system table is full (%d)", t.capacity)
	}
	if uint32(group) >= uint32(len(t.groups)) {
		fatalf(ErrOutOfRange, "system group %d of %d", group, len(t.groups))
	}

	rec := systemRecord{
		fn:    fn,
		name:  name,
		group: group,
		stats: &systemStatsInternal{minDuration: time.Duration(1<<63 - 1)},
	}

	desc := &t.groups[group]
	if desc.count == 0 {
		desc.start = uint32(len(t.records))
		desc.count = 1
		t.records = append(t.records, rec)
		return
	}

	at := desc.start + desc.count
	t.records = slices.Insert(t.records, int(at), rec)

	for i := range t.groups {
		other := &t.groups[i]
		if other.count != 0 && other.start >= at {
			other.start++
		}
	}
	desc.count++
}

// run invokes every system of the group in registration order. The run is copied first,
// so systems registered by a running system take effect on the next call.
func (t *systemTable) run(e *Engine, group GroupID) {
	if uint32(group) >= uint32(len(t.groups)) {
		fatalf(ErrOutOfRange, "system group %d of %d", group, len(t.groups))
	}

	desc := t.groups[group]
	for _, rec := range slices.Clone(t.records[desc.start : desc.start+desc.count]) {
		start := time.Now()
		rec.fn(e)
		rec.stats.record(time.Since(start))
	}
}

// clone copies the records with their own stats into a table carved over groups.
func (t *systemTable) clone(groups []groupDescriptor) systemTable {
	records := make([]systemRecord, len(t.records), t.capacity)
	for i, rec := range t.records {
		stats := *rec.stats
		rec.stats = &stats
		records[i] = rec
	}
	return systemTable{records: records, groups: groups, capacity: t.capacity}
}

func (t *systemTable) stats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(t.records),
		Systems:     make([]SystemStats, len(t.records)),
	}

	var totalExecs int64
	for i, rec := range t.records {
		internal := *rec.stats
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		} else {
			minDuration = 0
		}

		stats.Systems[i] = SystemStats{
			Name:           rec.name,
			Group:          rec.group,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
