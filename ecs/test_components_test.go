package ecs_test

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/recs/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int32
	Max     int32
}

type Message struct {
	Text [25]byte
}

const (
	PositionID ecs.ComponentID = iota
	VelocityID
	HealthID
	testComponentTypes
)

const (
	TagPlayer ecs.TagID = iota
	TagEnemy
	testTags
)

func testConfig() ecs.Config {
	return ecs.Config{
		MaxEntities:       64,
		MaxComponentTypes: uint32(testComponentTypes),
		MaxTags:           uint32(testTags),
		MaxSystems:        8,
		MaxSystemGroups:   2,
	}
}

// newTestEngine returns an engine with Position, Velocity and Health registered.
func newTestEngine(t testing.TB) *ecs.Engine {
	t.Helper()

	e, err := ecs.New(testConfig())
	require.NoError(t, err)
	require.NoError(t, ecs.RegisterComponent[Position](e, PositionID, 64))
	require.NoError(t, ecs.RegisterComponent[Velocity](e, VelocityID, 64))
	require.NoError(t, ecs.RegisterComponent[Health](e, HealthID, 64))
	t.Cleanup(e.Free)
	return e
}

// assertPanicsWith asserts that fn panics with an error wrapping target.
func assertPanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()

	defer func() {
		t.Helper()
		r := recover()
		if !assert.NotNil(t, r, "expected a panic") {
			return
		}
		err, ok := r.(error)
		if assert.True(t, ok, "panic value %v is not an error", r) {
			assert.True(t, eris.Is(err, target), "got %v, want %v", err, target)
		}
	}()
	fn()
}

func collect(it *ecs.Iterator) []ecs.Entity {
	var out []ecs.Entity
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
