package cleanup

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleFiresAfterGrace(t *testing.T) {
	s := New(20 * time.Millisecond)
	var fired int32

	s.Schedule("u1", "lobby", func() { atomic.StoreInt32(&fired, 1) })

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCancelPreventsFire(t *testing.T) {
	s := New(20 * time.Millisecond)
	var fired int32

	s.Schedule("u1", "game", func() { atomic.StoreInt32(&fired, 1) })
	s.Cancel("u1", "game")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestScheduleTwiceResetsTimer(t *testing.T) {
	s := New(30 * time.Millisecond)
	var count int32

	s.Schedule("u1", "lobby", func() { atomic.AddInt32(&count, 1) })
	time.Sleep(15 * time.Millisecond)
	s.Schedule("u1", "lobby", func() { atomic.AddInt32(&count, 1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestDifferentTypesAreIndependent(t *testing.T) {
	s := New(20 * time.Millisecond)
	var lobbyFired, gameFired int32

	s.Schedule("u1", "lobby", func() { atomic.StoreInt32(&lobbyFired, 1) })
	s.Schedule("u1", "game", func() { atomic.StoreInt32(&gameFired, 1) })
	s.Cancel("u1", "lobby")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&lobbyFired))
	assert.Equal(t, int32(1), atomic.LoadInt32(&gameFired))
}

func TestCancelWithoutScheduleIsNoop(t *testing.T) {
	s := New(20 * time.Millisecond)
	assert.NotPanics(t, func() { s.Cancel("ghost", "lobby") })
}
