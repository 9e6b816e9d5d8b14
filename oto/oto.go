package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sonigraph/sonify"
)

// Context owns the audio device. Only one may exist per process.
type Context struct {
	ctx        *oto.Context
	sampleRate int
}

// Voice plays a Synth through an oto player.
type Voice struct {
	*Synth
	mu     sync.Mutex
	player *oto.Player
}

const (
	SampleRate    = 44100
	otoBufferSize = 50 * time.Millisecond
)

// NewContext opens the default audio device and waits until it is ready.
func NewContext() (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: SampleRate}, nil
}

func (c *Context) Name() string { return "oto" }

// Voice implements sonify.Synther.
func (c *Context) Voice(volume float64) (sonify.Voice, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("audio device failed: %w", err)
	}
	v := &Voice{Synth: NewSynth(c.sampleRate, volume)}
	v.player = c.ctx.NewPlayer(v.Synth)
	v.player.Play()
	return v, nil
}

func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Dispose stops the player; the voice cannot be used afterwards.
func (v *Voice) Dispose() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.player == nil {
		return nil
	}
	err := v.player.Close()
	v.player = nil
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
