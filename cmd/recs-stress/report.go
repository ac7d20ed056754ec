package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/plus3/recs/ecs"
)

type Report struct {
	RunID uuid.UUID `json:"run_id"`

	// Configuration
	Duration       time.Duration `json:"duration"`
	Entities       int           `json:"entities"`
	Capacity       int           `json:"capacity"`
	Seed           int64         `json:"seed"`
	GCPauseMetrics bool          `json:"gc_pause_metrics"`

	// Results
	TotalUpdates int64               `json:"total_updates"`
	TotalTime    time.Duration       `json:"total_time"`
	UpdateTime   Stats               `json:"update_time"`
	Spawned      int                 `json:"spawned"`
	Expired      int                 `json:"expired"`
	Reaped       int                 `json:"reaped"`
	Engine       ecs.Stats           `json:"engine"`
	Systems      *ecs.SchedulerStats `json:"systems"`

	MemStatsStart runtime.MemStats `json:"-"`
	MemStatsEnd   runtime.MemStats `json:"-"`
}

type Stats struct {
	Min     time.Duration   `json:"min"`
	Max     time.Duration   `json:"max"`
	Avg     time.Duration   `json:"avg"`
	Samples []time.Duration `json:"-"`
}

// Finalize folds the frame samples into min, max and average.
func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	s.Min = slices.Min(s.Samples)
	s.Max = slices.Max(s.Samples)

	var total time.Duration
	for _, sample := range s.Samples {
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

type memorySummary struct {
	HeapAllocDelta  int64  `json:"heap_alloc_delta"`
	TotalAllocDelta int64  `json:"total_alloc_delta"`
	TotalAllocMB    string `json:"-"`
	SysDelta        int64  `json:"sys_delta"`
	NumGC           uint32 `json:"num_gc"`
	PauseTotal      string `json:"pause_total,omitempty"`
}

func (r *Report) memory() memorySummary {
	m := memorySummary{
		HeapAllocDelta:  int64(r.MemStatsEnd.HeapAlloc) - int64(r.MemStatsStart.HeapAlloc),
		TotalAllocDelta: int64(r.MemStatsEnd.TotalAlloc) - int64(r.MemStatsStart.TotalAlloc),
		TotalAllocMB:    fmt.Sprintf("%.2f", float64(r.MemStatsEnd.TotalAlloc)/1024/1024),
		SysDelta:        int64(r.MemStatsEnd.Sys) - int64(r.MemStatsStart.Sys),
		NumGC:           r.MemStatsEnd.NumGC - r.MemStatsStart.NumGC,
	}
	if r.GCPauseMetrics {
		m.PauseTotal = time.Duration(r.MemStatsEnd.PauseTotalNs - r.MemStatsStart.PauseTotalNs).String()
	}
	return m
}

// GenerateJSON writes the report as indented JSON.
func (r *Report) GenerateJSON(w io.Writer) error {
	out := struct {
		*Report
		Memory memorySummary `json:"memory"`
	}{r, r.memory()}

	bz, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(bz, '\n'))
	return err
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run ID:** {{.RunID}}
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Entity Capacity:** {{.Capacity}}
- **Seed:** {{.Seed}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}

## Entity Churn
- **Spawned:** {{.Spawned}}
- **Expired:** {{.Expired}}
- **Reaped:** {{.Reaped}}
- **Active At End:** {{.Engine.ActiveEntities}} / {{.Engine.MaxEntities}}
{{range .Engine.Components}}
- Component {{.ID}} {{.Type}}: {{.Count}} / {{.Capacity}} records of {{.Size}} bytes{{end}}

## Systems
{{range .Systems.Systems}}
- {{.Name}} (group {{.Group}}): {{.ExecutionCount}} runs, avg {{.AvgDuration}}, max {{.MaxDuration}}{{end}}

## Memory
- **Heap Alloc Delta:** {{.Memory.HeapAllocDelta}} bytes
- **Total Alloc Delta:** {{.Memory.TotalAllocDelta}} bytes ({{.Memory.TotalAllocMB}} MB allocated over the process)
- **Sys Delta:** {{.Memory.SysDelta}} bytes
- **GC Cycles:** {{.Memory.NumGC}}
{{if .Memory.PauseTotal}}- **Total GC Pause:** {{.Memory.PauseTotal}}
{{end}}`

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, struct {
		*Report
		Memory memorySummary
	}{r, r.memory()})
}
