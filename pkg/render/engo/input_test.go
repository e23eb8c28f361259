package engo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opd-ai/go-blob/pkg/input"
)

func TestInputSystem_Defaults(t *testing.T) {
	is := NewInputSystem()

	assert.True(t, is.IsScanning())
	assert.Equal(t, input.Snapshot{Scan: true}, is.Poll())
}

func TestInputSystem_Movement(t *testing.T) {
	is := NewInputSystem()
	is.sample(buttonState{keys: input.Keys{Right: true, Up: true}})

	snap := is.Poll()
	assert.Equal(t, input.Keys{Right: true, Up: true}.Intent(), snap.Move)
	assert.Equal(t, snap, is.Poll(), "held keys persist between polls")
}

func TestInputSystem_ReleaseIsConsumedOnce(t *testing.T) {
	is := NewInputSystem()

	is.sample(buttonState{release: true})
	is.sample(buttonState{release: true})

	assert.True(t, is.Poll().Release)
	assert.False(t, is.Poll().Release, "holding the key does not repeat")

	is.sample(buttonState{})
	is.sample(buttonState{release: true})
	assert.True(t, is.Poll().Release)
}

func TestInputSystem_ToggleScan(t *testing.T) {
	is := NewInputSystem()

	is.sample(buttonState{toggleScan: true})
	assert.False(t, is.IsScanning())
	assert.False(t, is.Poll().Scan)

	is.sample(buttonState{toggleScan: true})
	assert.True(t, is.IsScanning())
}
