package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMock_Now(t *testing.T) {
	m := NewMock(epoch)
	if !m.Now().Equal(epoch) {
		t.Errorf("Now() = %v, want %v", m.Now(), epoch)
	}

	m.Advance(time.Minute)
	if want := epoch.Add(time.Minute); !m.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", m.Now(), want)
	}
}

func TestMock_AfterFuncOrder(t *testing.T) {
	m := NewMock(epoch)

	var order []string
	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(20 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("after 20ms order = %v, want [a b]", order)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}

	m.Advance(10 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Errorf("after 30ms order = %v, want [a b c]", order)
	}
}

func TestMock_NowInsideCallback(t *testing.T) {
	m := NewMock(epoch)

	var seen time.Time
	m.AfterFunc(5*time.Second, func() { seen = m.Now() })
	m.Advance(time.Minute)

	if want := epoch.Add(5 * time.Second); !seen.Equal(want) {
		t.Errorf("Now() inside callback = %v, want %v", seen, want)
	}
}

func TestMock_Stop(t *testing.T) {
	m := NewMock(epoch)

	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() on pending timer should return true")
	}
	if timer.Stop() {
		t.Error("second Stop() should return false")
	}

	m.Advance(time.Hour)
	if fired {
		t.Error("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestMock_StopAfterFire(t *testing.T) {
	m := NewMock(epoch)
	timer := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)

	if timer.Stop() {
		t.Error("Stop() after firing should return false")
	}
}

func TestMock_Reschedule(t *testing.T) {
	m := NewMock(epoch)

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3500 * time.Millisecond)
	if ticks != 3 {
		t.Errorf("ticks = %d, want 3", ticks)
	}
}

func TestReal_AfterFunc(t *testing.T) {
	c := Real()

	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}

func TestReal_Stop(t *testing.T) {
	c := Real()
	timer := c.AfterFunc(time.Hour, func() {})
	if !timer.Stop() {
		t.Error("Stop() on pending real timer should return true")
	}
}
