package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestConfigFlags(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		has    uint32
		hasNot uint32
	}{
		{"visible", Config{}, uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE), uint32(sdl.WINDOW_HIDDEN)},
		{"hidden", Config{Hidden: true}, uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_HIDDEN), uint32(sdl.WINDOW_RESIZABLE)},
		{"fullscreen", Config{Fullscreen: true}, uint32(sdl.WINDOW_FULLSCREEN), uint32(sdl.WINDOW_HIDDEN)},
		{"hidden ignores fullscreen", Config{Hidden: true, Fullscreen: true}, uint32(sdl.WINDOW_HIDDEN), uint32(sdl.WINDOW_FULLSCREEN)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.cfg.Flags()
			assert.Equal(t, tt.has, flags&tt.has)
			assert.Zero(t, flags&tt.hasNot)
		})
	}
}
