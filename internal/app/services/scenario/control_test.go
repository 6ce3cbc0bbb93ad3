package scenario

import (
	"testing"
	"time"
)

func TestControlPlane_PauseResume(t *testing.T) {
	c := newControlPlane()
	if !c.pause() {
		t.Fatal("expected first pause to succeed")
	}
	if c.pause() {
		t.Fatal("expected second pause to report already-paused")
	}

	done := make(chan bool, 1)
	go func() {
		done <- c.waitResumeOrCancel()
	}()

	time.Sleep(10 * time.Millisecond)
	if !c.resume() {
		t.Fatal("expected resume to succeed while paused")
	}

	select {
	case cancelled := <-done:
		if cancelled {
			t.Fatal("expected a plain resume, not a cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("waitResumeOrCancel did not return after resume")
	}
}

func TestControlPlane_CancelWhilePausedWakesWaiter(t *testing.T) {
	c := newControlPlane()
	c.pause()

	done := make(chan bool, 1)
	go func() {
		done <- c.waitResumeOrCancel()
	}()

	time.Sleep(10 * time.Millisecond)
	c.fireCancel()

	select {
	case cancelled := <-done:
		if !cancelled {
			t.Fatal("expected cancellation to be observed")
		}
	case <-time.After(time.Second):
		t.Fatal("waitResumeOrCancel did not return after cancel")
	}
	if !c.isCancelled() {
		t.Fatal("expected isCancelled to report true")
	}
}

func TestControlPlane_CancelContextPropagates(t *testing.T) {
	c := newControlPlane()
	ctx := c.context()
	if ctx.Err() != nil {
		t.Fatal("expected a live context before cancellation")
	}
	c.fireCancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Fatal("expected the context to be done after fireCancel")
	}
}
