package safe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecoversPanic(t *testing.T) {
	var got error
	assert.NotPanics(t, func() {
		Run("recorder", func() { panic("device gone") }, func(err error) { got = err })
	})
	require.Error(t, got)
	assert.Contains(t, got.Error(), "recorder panic: device gone")
}

func TestRunWithoutPanic(t *testing.T) {
	called := false
	Run("noop", func() { called = true }, func(error) { t.Fatal("unexpected panic callback") })
	assert.True(t, called)
}

func TestGo(t *testing.T) {
	done := make(chan error, 1)
	Go("reader", func() { panic("boom") }, func(err error) { done <- err })

	select {
	case err := <-done:
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("panic callback not called")
	}
}
