package register

import (
	"fmt"
	"sync"
)

// Hooks 保存按注册顺序执行的初始化函数，通常在 init 中注册，在 setup 时统一执行
type Hooks[T any] struct {
	mu    sync.Mutex
	names map[string]struct{}
	list  []hook[T]
}

type hook[T any] struct {
	name string
	fn   func(T)
}

// Register 同名 hook 重复注册视为编程错误
func (h *Hooks[T]) Register(name string, fn func(T)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.names == nil {
		h.names = make(map[string]struct{})
	}
	if _, exist := h.names[name]; exist {
		panic(fmt.Sprintf("register: hook %q already registered", name))
	}
	h.names[name] = struct{}{}
	h.list = append(h.list, hook[T]{name: name, fn: fn})
}

func (h *Hooks[T]) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.list))
	for _, v := range h.list {
		names = append(names, v.name)
	}
	return names
}

// Apply 依次执行全部 hook，执行期间可以安全地注册新的 hook，但新 hook 不会在本轮执行
func (h *Hooks[T]) Apply(target T) {
	h.mu.Lock()
	list := make([]hook[T], len(h.list))
	copy(list, h.list)
	h.mu.Unlock()

	for _, v := range list {
		v.fn(target)
	}
}
