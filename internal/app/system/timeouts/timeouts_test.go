package timeouts_test

import (
	"testing"
	"time"

	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
)

func TestConfigure_OverridesNonZeroFields(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Short: 8 * time.Second})

	if got := timeouts.Short(); got != 8*time.Second {
		t.Errorf("Short() = %v, want 8s", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", got, timeouts.DefaultMedium)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	t.Setenv("TEMPOHUB_TIMEOUT_BATCH", "2m")
	t.Setenv("TEMPOHUB_TIMEOUT_PING", "not-a-duration")

	if n := timeouts.ConfigureFromEnv(); n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	if got := timeouts.Batch(); got != 2*time.Minute {
		t.Errorf("Batch() = %v, want 2m", got)
	}
	if got := timeouts.Ping(); got != timeouts.DefaultPing {
		t.Errorf("Ping() = %v, want default after bad value", got)
	}
}
