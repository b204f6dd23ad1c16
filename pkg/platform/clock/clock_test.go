package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAfterFiresOnlyWhenDue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(time.Second)
	assert.Equal(t, 1, f.Pending())

	f.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("timer fired before deadline")
	default:
	}

	f.Advance(500 * time.Millisecond)
	select {
	case fired := <-ch:
		assert.Equal(t, start.Add(time.Second), fired)
	default:
		t.Fatal("timer did not fire at deadline")
	}
	assert.Equal(t, 0, f.Pending())
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	select {
	case <-f.After(0):
	default:
		t.Fatal("zero duration should fire immediately")
	}
}

func TestFakeBlockUntil(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		f.BlockUntil(1)
		close(done)
	}()

	_ = f.After(time.Minute)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "BlockUntil did not observe the pending timer")
	}
}
