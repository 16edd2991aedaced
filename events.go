package main

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Events is the slice of the Wails event runtime the app uses.
type Events interface {
	// On subscribes fn to a frontend event and returns the unsubscribe func.
	On(name string, fn func(data ...any)) func()
	Emit(name string, data ...any)
}

type wailsEvents struct {
	ctx context.Context
}

func (w wailsEvents) On(name string, fn func(data ...any)) func() {
	return runtime.EventsOn(w.ctx, name, fn)
}

func (w wailsEvents) Emit(name string, data ...any) {
	runtime.EventsEmit(w.ctx, name, data...)
}
