package backoff

import (
	"testing"
	"time"
)

func TestNextGrowsWithAttempt(t *testing.T) {
	base := 10 * time.Millisecond
	prev := time.Duration(0)
	for attempt := 0; attempt < 5; attempt++ {
		d := Next(base, attempt)
		if d < prev {
			t.Fatalf("attempt %d backoff %v shorter than previous %v", attempt, d, prev)
		}
		prev = d - time.Duration(float64(d)*0.1) // strip jitter headroom for next comparison
	}
}

func TestNextCapped(t *testing.T) {
	d := Next(time.Second, 30)
	if d > maxBackoff+maxBackoff/10 {
		t.Fatalf("expected capped backoff, got %v", d)
	}
}

func TestShouldRetry(t *testing.T) {
	if !ShouldRetry(0, 3) {
		t.Fatal("expected retry allowed at 0/3")
	}
	if ShouldRetry(3, 3) {
		t.Fatal("expected retry denied at 3/3")
	}
}
