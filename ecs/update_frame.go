package ecs

// UpdateFrame is a ready-made user context for frame loops: the frame delta and a shared
// command buffer that systems queue structural changes into.
type UpdateFrame struct {
	DeltaTime float64
	Number    uint64
	Commands  *Commands
}

// NewUpdateFrame returns a frame with an empty command buffer.
func NewUpdateFrame(dt float64) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  NewCommands(),
	}
}

// Advance flushes the frame's commands into e and starts the next frame.
func (f *UpdateFrame) Advance(e *Engine, dt float64) {
	f.Commands.Flush(e)
	f.DeltaTime = dt
	f.Number++
}

// ContextOf returns the engine context as *T, or nil if the context holds something else.
func ContextOf[T any](e *Engine) *T {
	v, _ := e.context.(*T)
	return v
}
