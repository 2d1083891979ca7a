package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageLimiterBurst(t *testing.T) {
	req := require.New(t)
	lim := newMessageLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		req.True(lim.allow(), "message %d within burst should pass", i)
	}
	req.False(lim.allow(), "message beyond burst should be rejected")
}

func TestMessageLimiterRefill(t *testing.T) {
	req := require.New(t)
	lim := newMessageLimiter(2, 100*time.Millisecond)

	req.True(lim.allow())
	req.True(lim.allow())
	req.False(lim.allow())

	time.Sleep(120 * time.Millisecond)
	req.True(lim.allow(), "tokens should grow back after the refill interval")
}

func TestMessageLimiterDefensiveDefaults(t *testing.T) {
	req := require.New(t)

	lim := newMessageLimiter(0, 0)
	req.True(lim.allow(), "a zero-burst limiter still allows one message")
}
