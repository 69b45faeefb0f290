package collect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/streamwatch/streamwatch/internal/models"
)

func TestClassOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"not found", NotFound(models.PlatformTwitch, "ninja", nil), ClassNotFound},
		{"auth failure", AuthFailure(models.PlatformReddit, "golang", errors.New("401")), ClassAuthFailure},
		{"rate limited", RateLimited(models.PlatformTwitter, "spez", nil), ClassRateLimited},
		{"transient", Transient(models.PlatformYouTube, "UCx", errors.New("timeout")), ClassTransient},
		{"plain error", errors.New("something else"), ClassUnknown},
		{"wrapped classified error", fmt.Errorf("persist: %w", Transient(models.PlatformTwitch, "ninja", nil)), ClassTransient},
		{"nil", nil, ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassOf(tc.err); got != tc.want {
				t.Errorf("ClassOf() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"not found is permanent", NotFound(models.PlatformTwitch, "ninja", nil), false},
		{"auth failure is permanent", AuthFailure(models.PlatformTwitch, "ninja", nil), false},
		{"rate limited retries", RateLimited(models.PlatformTwitch, "ninja", nil), true},
		{"transient retries", Transient(models.PlatformTwitch, "ninja", nil), true},
		{"unclassified retries", errors.New("dial tcp: connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	inner := errors.New("stream offline")
	err := Transient(models.PlatformTwitch, "ninja", inner)

	if !errors.Is(err, inner) {
		t.Error("Unwrap lost the inner error")
	}
	want := "twitch/ninja: transient: stream offline"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NotFound(models.PlatformReddit, "golang", nil)
	if bare.Error() != "reddit/golang: not_found" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
