package ecs

// System is a callback run by the scheduler as part of a group.
// Systems build their own queries; the user context is available through Engine.Context.
type System func(e *Engine)
