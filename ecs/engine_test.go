package ecs_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/recs/ecs"
)

func TestNewValidation(t *testing.T) {
	nop := func(*ecs.Engine) {}

	tests := []struct {
		name   string
		modify func(*ecs.Config)
		want   error
	}{
		{"zero entities", func(c *ecs.Config) { c.MaxEntities = 0 }, ecs.ErrInvalidConfig},
		{"sentinel entities", func(c *ecs.Config) { c.MaxEntities = ecs.NoEntityID }, ecs.ErrInvalidConfig},
		{"component and tag overflow", func(c *ecs.Config) {
			c.MaxComponentTypes = 0xFFFFFFFF
			c.MaxTags = 2
		}, ecs.ErrCapacityOverflow},
		{"too many component types", func(c *ecs.Config) {
			c.MaxComponentTypes = 0xFFFFFFFF
			c.MaxTags = 0
		}, ecs.ErrInvalidConfig},
		{"too many type bits", func(c *ecs.Config) {
			c.MaxComponentTypes = ecs.MaxTypeBits
			c.MaxTags = 1
		}, ecs.ErrInvalidConfig},
		{"component id out of range", func(c *ecs.Config) {
			c.Components = []ecs.ComponentSpec{{ID: 9, Size: 4, MaxInstances: 1}}
		}, ecs.ErrInvalidConfig},
		{"duplicate component id", func(c *ecs.Config) {
			c.Components = []ecs.ComponentSpec{{ID: 1, Size: 4, MaxInstances: 1}, {ID: 1, Size: 8, MaxInstances: 1}}
		}, ecs.ErrInvalidConfig},
		{"zero size component", func(c *ecs.Config) {
			c.Components = []ecs.ComponentSpec{{ID: 0, Size: 0, MaxInstances: 1}}
		}, ecs.ErrInvalidComponentType},
		{"too many systems", func(c *ecs.Config) {
			c.MaxSystems = 1
			c.Systems = []ecs.SystemSpec{{Fn: nop}, {Fn: nop}}
		}, ecs.ErrInvalidConfig},
		{"nil system", func(c *ecs.Config) {
			c.Systems = []ecs.SystemSpec{{}}
		}, ecs.ErrInvalidConfig},
		{"group out of range", func(c *ecs.Config) {
			c.Systems = []ecs.SystemSpec{{Fn: nop, Group: 2}}
		}, ecs.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)

			e, err := ecs.New(cfg)
			assert.Nil(t, e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRegistersConfiguredTypes(t *testing.T) {
	ran := 0
	cfg := testConfig()
	cfg.Context = "ctx"
	cfg.Components = []ecs.ComponentSpec{{ID: HealthID, Size: 8, MaxInstances: 4}}
	cfg.Systems = []ecs.SystemSpec{{Fn: func(*ecs.Engine) { ran++ }, Group: 1, Name: "counter"}}

	e, err := ecs.New(cfg)
	require.NoError(t, err)
	defer e.Free()

	assert.Equal(t, "ctx", e.Context())
	assert.Equal(t, uint32(4), e.Pool(HealthID).Cap())
	assert.Equal(t, uint32(8), e.Pool(HealthID).Size())
	assert.Nil(t, e.Pool(HealthID).Type())

	e.RunGroup(0)
	assert.Equal(t, 0, ran)
	e.RunGroup(1)
	assert.Equal(t, 1, ran)
	assert.Equal(t, "counter", e.SystemStats().Systems[0].Name)
}

// Two small raw components, two tags and a single entity, end to end.
func TestEngineScenario(t *testing.T) {
	const (
		MessageID ecs.ComponentID = iota
		NumberID
	)
	const (
		TagA ecs.TagID = iota
		TagB
	)

	e, err := ecs.New(ecs.Config{
		MaxEntities:       2,
		MaxComponentTypes: 2,
		MaxTags:           2,
		MaxSystems:        1,
		MaxSystemGroups:   1,
		Components: []ecs.ComponentSpec{
			{ID: MessageID, Size: 25, MaxInstances: 2},
			{ID: NumberID, Size: 8, MaxInstances: 2},
		},
	})
	require.NoError(t, err)
	defer e.Free()

	ent := e.AddEntity()
	assert.Equal(t, ecs.NewEntity(0, 0), ent)

	message := make([]byte, 25)
	copy(message, "hello from the engine")
	e.AddComponent(ent, MessageID, message)
	e.AddComponent(ent, NumberID, binary.LittleEndian.AppendUint64(nil, 1234))
	e.AddTag(ent, TagA)
	e.AddTag(ent, TagB)

	mask := e.NewMask([]ecs.ComponentID{NumberID}, []ecs.TagID{TagA, TagB})
	matches := collect(e.Query(mask))
	require.Len(t, matches, 1)
	assert.Equal(t, ent, matches[0])
	assert.Equal(t, uint64(1234), binary.LittleEndian.Uint64(e.GetComponent(matches[0], NumberID)))
	assert.Equal(t, message, e.GetComponent(ent, MessageID))

	e.RemoveEntity(ent)
	assert.Zero(t, e.NumActiveEntities())
	assert.Zero(t, e.ComponentCount(MessageID))
	assert.Zero(t, e.ComponentCount(NumberID))

	next := e.AddEntity()
	assert.Equal(t, ecs.NewEntity(0, 1), next)
	assert.False(t, e.HasTag(next, TagA), "signature cleared on removal")
	assert.False(t, e.HasComponent(next, NumberID))
}

func TestComponentRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ent := e.AddEntity()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	e.AddComponent(ent, PositionID, data)
	assert.True(t, e.HasComponent(ent, PositionID))
	assert.Equal(t, data, e.GetComponent(ent, PositionID))

	data[0] = 9
	assert.Equal(t, byte(1), e.GetComponent(ent, PositionID)[0], "AddComponent copies")

	e.GetComponent(ent, PositionID)[0] = 42
	assert.Equal(t, byte(42), e.GetComponent(ent, PositionID)[0], "GetComponent aliases the pool")

	e.RemoveComponent(ent, PositionID)
	assert.False(t, e.HasComponent(ent, PositionID))
	assert.Nil(t, e.GetComponent(ent, PositionID))
	e.RemoveComponent(ent, PositionID)

	assertPanicsWith(t, ecs.ErrInvalidComponentType, func() {
		e.AddComponent(ent, PositionID, []byte{1})
	})
}

func TestStaleHandles(t *testing.T) {
	e := newTestEngine(t)
	ent := e.AddEntity()
	ecs.Add(e, ent, Position{X: 1})
	e.RemoveEntity(ent)

	reused := e.AddEntity()
	require.Equal(t, ent.Slot, reused.Slot)

	e.AddComponent(ent, PositionID, make([]byte, 8))
	e.AddTag(ent, TagPlayer)
	assert.False(t, e.HasComponent(reused, PositionID), "stale handle mutations are ignored")
	assert.False(t, e.HasTag(reused, TagPlayer))
	assert.Nil(t, e.GetComponent(ent, PositionID))
	assert.False(t, e.IsLive(ent))
	assert.True(t, e.IsLive(reused))
	assert.False(t, e.IsLive(ecs.NoEntity))

	e.RemoveEntity(ent)
	assert.True(t, e.IsLive(reused))
}

func TestTagsAndMasks(t *testing.T) {
	e := newTestEngine(t)
	ent := e.AddEntity()
	ecs.Add(e, ent, Position{})
	e.AddTag(ent, TagEnemy)

	assert.True(t, e.HasTag(ent, TagEnemy))
	assert.False(t, e.HasTag(ent, TagPlayer))

	assert.True(t, e.HasComponents(ent, e.NewMask([]ecs.ComponentID{PositionID}, []ecs.TagID{TagEnemy})))
	assert.False(t, e.HasComponents(ent, e.NewMask([]ecs.ComponentID{PositionID, VelocityID}, nil)))
	assert.True(t, e.HasExcluded(ent, e.NewMask([]ecs.ComponentID{VelocityID}, []ecs.TagID{TagPlayer})))
	assert.False(t, e.HasExcluded(ent, e.NewMask([]ecs.ComponentID{VelocityID}, []ecs.TagID{TagEnemy})))

	e.RemoveTag(ent, TagEnemy)
	assert.False(t, e.HasTag(ent, TagEnemy))

	e.AddTag(ent, TagPlayer)
	e.RemoveAllComponents(ent)
	assert.False(t, e.HasTag(ent, TagPlayer))
	assert.False(t, e.HasComponent(ent, PositionID))
	assert.Zero(t, e.ComponentCount(PositionID))
	assert.True(t, e.IsLive(ent))

	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.AddTag(ent, testTags) })
	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.HasComponents(ent, ecs.Signature{0, 0}) })
}

func TestQueuedRemoval(t *testing.T) {
	e := newTestEngine(t)
	a, b, c := e.AddEntity(), e.AddEntity(), e.AddEntity()
	for _, ent := range []ecs.Entity{a, b, c} {
		ecs.Add(e, ent, Health{Current: 1})
	}

	e.QueueRemoveEntity(b)
	assert.False(t, e.IsLive(b))
	assert.Equal(t, uint32(3), e.NumActiveEntities())
	assert.Equal(t, uint32(3), e.ComponentCount(HealthID), "components stay until flush")
	assert.Equal(t, b.Slot, e.EntityAt(1).Slot)
	assert.Equal(t, uint32(1), e.Stats().PendingRemovals)

	assert.Equal(t, 1, e.FlushRemoved())
	assert.Equal(t, uint32(2), e.NumActiveEntities())
	assert.Equal(t, uint32(2), e.ComponentCount(HealthID))
	assert.True(t, e.IsLive(a))
	assert.True(t, e.IsLive(c))
	assert.Zero(t, e.FlushRemoved())
}

func TestRemoveEntityAt(t *testing.T) {
	e := newTestEngine(t)
	a, b := e.AddEntity(), e.AddEntity()
	ecs.Add(e, b, Position{})

	e.RemoveEntityAt(1)
	assert.False(t, e.IsLive(b))
	assert.True(t, e.IsLive(a))
	assert.Zero(t, e.ComponentCount(PositionID))
	assert.Equal(t, a, e.EntityAt(0))

	e.QueueRemoveEntity(a)
	e.RemoveEntityAt(0)
	assert.Zero(t, e.NumActiveEntities())
	assert.Equal(t, ecs.NewEntity(a.Slot, 1), e.AddEntity(), "queued entity bumped once")

	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.RemoveEntityAt(5) })
	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.EntityAt(5) })
}

func TestComponentIntrospection(t *testing.T) {
	e := newTestEngine(t)
	a, b := e.AddEntity(), e.AddEntity()
	ecs.Add(e, a, Health{Current: 1})
	ecs.Add(e, b, Health{Current: 2})

	assert.Equal(t, uint32(2), e.ComponentCount(HealthID))
	assert.Equal(t, a, e.ComponentEntity(HealthID, 0))
	assert.Equal(t, b, e.ComponentEntity(HealthID, 1))
	assert.Len(t, e.ComponentAt(HealthID, 1), 8)

	e.QueueRemoveEntity(a)
	assert.True(t, e.ComponentEntity(HealthID, 0).IsNone(), "owner queued for removal")

	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.ComponentAt(HealthID, 2) })
	assertPanicsWith(t, ecs.ErrOutOfRange, func() { e.ComponentEntity(HealthID, 2) })
}

func TestRegisterComponentErrors(t *testing.T) {
	e := newTestEngine(t)

	assertPanicsWith(t, ecs.ErrDuplicateComponent, func() {
		_ = e.RegisterComponentSize(PositionID, 8, 1)
	})
	assertPanicsWith(t, ecs.ErrOutOfRange, func() {
		_ = e.RegisterComponentSize(testComponentTypes, 8, 1)
	})

	bare, err := ecs.New(testConfig())
	require.NoError(t, err)
	defer bare.Free()
	assertPanicsWith(t, ecs.ErrUnknownComponent, func() {
		bare.GetComponent(bare.AddEntity(), HealthID)
	})
}

func TestCapacityExceeded(t *testing.T) {
	e, err := ecs.New(ecs.Config{MaxEntities: 1, MaxComponentTypes: 1, MaxSystemGroups: 1})
	require.NoError(t, err)
	defer e.Free()
	require.NoError(t, e.RegisterComponentSize(0, 4, 0))

	ent := e.AddEntity()
	assertPanicsWith(t, ecs.ErrCapacityExceeded, func() { e.AddEntity() })
	assertPanicsWith(t, ecs.ErrCapacityExceeded, func() { e.AddComponent(ent, 0, make([]byte, 4)) })
	assertPanicsWith(t, ecs.ErrCapacityExceeded, func() { e.RegisterSystem(func(*ecs.Engine) {}, 0) })
}

func TestUnregisterComponent(t *testing.T) {
	e := newTestEngine(t)
	ent := e.AddEntity()
	ecs.Add(e, ent, Velocity{DX: 1})
	e.AddTag(ent, TagPlayer)

	e.UnregisterComponent(VelocityID)
	assert.True(t, e.HasTag(ent, TagPlayer))
	_, ok := ecs.ComponentIDOf[Velocity](e)
	assert.False(t, ok)
	assertPanicsWith(t, ecs.ErrUnknownComponent, func() { e.ComponentCount(VelocityID) })

	require.NoError(t, e.RegisterComponentSize(VelocityID, 16, 4))
	assert.False(t, e.HasComponent(ent, VelocityID), "signature bit cleared")
}

func TestClone(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterNamedSystem("noop", func(*ecs.Engine) {}, 0)

	a, b := e.AddEntity(), e.AddEntity()
	ecs.Add(e, a, Position{X: 1, Y: 2})
	ecs.Add(e, b, Health{Current: 5})
	e.AddTag(b, TagEnemy)
	e.QueueRemoveEntity(a)

	c := e.Clone()
	defer c.Free()

	assert.Equal(t, e.Stats(), c.Stats())
	assert.False(t, c.IsLive(a))
	assert.True(t, c.HasTag(b, TagEnemy))
	assert.Equal(t, Health{Current: 5}, *ecs.Get[Health](c, b))
	assert.Equal(t, 1, c.SystemStats().SystemCount)
	c.RunGroup(0)
	assert.Equal(t, int64(1), c.SystemStats().TotalExecutions)
	assert.Zero(t, e.SystemStats().TotalExecutions, "system stats are copied")
	id, ok := ecs.ComponentIDOf[Health](c)
	assert.True(t, ok)
	assert.Equal(t, HealthID, id)

	ecs.Get[Health](c, b).Current = 9
	c.RemoveTag(b, TagEnemy)
	c.FlushRemoved()
	ecs.Add(c, c.AddEntity(), Velocity{})

	assert.Equal(t, int32(5), ecs.Get[Health](e, b).Current)
	assert.True(t, e.HasTag(b, TagEnemy))
	assert.Equal(t, uint32(2), e.NumActiveEntities())
	assert.Zero(t, e.ComponentCount(VelocityID))
	assert.Equal(t, uint32(1), e.ComponentCount(PositionID))

	e.Free()
	assert.True(t, c.IsLive(b), "clone outlives its source")
}

func TestFree(t *testing.T) {
	e, err := ecs.New(testConfig())
	require.NoError(t, err)
	ent := e.AddEntity()

	e.Free()
	e.Free()
	assert.True(t, e.Freed())

	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.AddEntity() })
	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.IsLive(ent) })
	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.RunGroup(0) })
	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.Clone() })
	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.SetContext(nil) })
	assertPanicsWith(t, ecs.ErrEngineFreed, func() { e.Context() })
}

func TestSetContext(t *testing.T) {
	e := newTestEngine(t)
	assert.Nil(t, e.Context())

	frame := ecs.NewUpdateFrame(0.5)
	e.SetContext(frame)
	assert.Same(t, frame, ecs.ContextOf[ecs.UpdateFrame](e))
	assert.Nil(t, ecs.ContextOf[Position](e))
}
