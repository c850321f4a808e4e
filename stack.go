package agentlog

import "runtime"

// captureStack walks the caller's Go call stack starting `skip` frames up.
// Best-effort: returns an empty slice rather than erroring if no frames
// can be resolved.
func captureStack(skip int) []StackFrame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			out = append(out, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     uint32(frame.Line),
			})
		}
		if !more {
			break
		}
	}
	return out
}
