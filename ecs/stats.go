package ecs

// PoolStats describes the occupancy of one component pool.
type PoolStats struct {
	ID       ComponentID `json:"id"`
	Type     string      `json:"type,omitempty"`
	Size     uint32      `json:"size"`
	Count    uint32      `json:"count"`
	Capacity uint32      `json:"capacity"`
}

// Stats is a snapshot of engine occupancy.
type Stats struct {
	ActiveEntities    uint32      `json:"active_entities"`
	MaxEntities       uint32      `json:"max_entities"`
	PendingRemovals   uint32      `json:"pending_removals"`
	MaxComponentTypes uint32      `json:"max_component_types"`
	MaxTags           uint32      `json:"max_tags"`
	SystemCount       int         `json:"system_count"`
	MaxSystems        uint32      `json:"max_systems"`
	Components        []PoolStats `json:"components"`
}

// Stats returns a snapshot of entity, component and system counts.
func (e *Engine) Stats() Stats {
	e.mustBeLive()

	stats := Stats{
		ActiveEntities:    e.entities.active,
		MaxEntities:       e.maxEntities,
		MaxComponentTypes: e.maxComponentTypes,
		MaxTags:           e.maxTags,
		SystemCount:       len(e.systems.records),
		MaxSystems:        e.maxSystems,
	}

	for i := uint32(0); i < e.entities.active; i++ {
		if !e.entities.current(e.entities.pool[i]) {
			stats.PendingRemovals++
		}
	}

	for _, pool := range e.pools {
		if pool == nil {
			continue
		}
		ps := PoolStats{
			ID:       pool.id,
			Size:     pool.size,
			Count:    pool.count,
			Capacity: pool.capacity,
		}
		if pool.typ != nil {
			ps.Type = pool.typ.String()
		}
		stats.Components = append(stats.Components, ps)
	}
	return stats
}
