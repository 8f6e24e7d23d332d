package safe

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Go 在新的 goroutine 中执行 fn，panic 会被记录并转换为 error 交给 onPanic
func Go(component string, fn func(), onPanic func(error)) {
	go Run(component, fn, onPanic)
}

// Run 同步执行 fn，onPanic 可以为空
func Run(component string, fn func(), onPanic func(error)) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		slog.Error("panic recovered",
			slog.String("component", component),
			slog.Any("recover", r),
			slog.String("stack", string(debug.Stack())),
		)
		if onPanic != nil {
			onPanic(fmt.Errorf("%s panic: %v", component, r))
		}
	}()

	fn()
}
