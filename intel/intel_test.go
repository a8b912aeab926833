package intel

import (
	"context"
	"testing"
	"time"
)

func TestGatherAbandonsLateWhois(t *testing.T) {
	c := NewCollector(time.Millisecond)
	rep := c.Gather(context.Background(), "example.invalid")
	if rep == nil || rep.Domain != "example.invalid" {
		t.Fatalf("expected a report for the domain, got %+v", rep)
	}
	if rep.WhoisAgeDays != 0 || rep.CreatedOn != "" || rep.UpdatedOn != "" {
		t.Fatalf("abandoned whois lookup leaked into the report: %+v", rep)
	}

	// Keep reading the returned report while the abandoned lookup finishes
	// in the background; under -race a late write into it fails the test.
	for i := 0; i < 50; i++ {
		_ = rep.WhoisAgeDays + len(rep.CreatedOn) + len(rep.UpdatedOn)
		time.Sleep(2 * time.Millisecond)
	}
}

func TestParseWhoisDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2019-05-14T04:00:00Z", time.Date(2019, 5, 14, 4, 0, 0, 0, time.UTC)},
		{"datetime", "2019-05-14 04:00:00", time.Date(2019, 5, 14, 4, 0, 0, 0, time.UTC)},
		{"date only", "2019-05-14", time.Date(2019, 5, 14, 0, 0, 0, 0, time.UTC)},
		{"registrar style", "14-May-2019", time.Date(2019, 5, 14, 0, 0, 0, 0, time.UTC)},
		{"dotted", "2019.05.14", time.Date(2019, 5, 14, 0, 0, 0, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "sometime in 2019", time.Time{}},
		{"padded", "  2019-05-14  ", time.Date(2019, 5, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseWhoisDate(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("parseWhoisDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(0)
	if c.Timeout != 4*time.Second {
		t.Errorf("zero timeout should default to 4s, got %s", c.Timeout)
	}

	c = NewCollector(time.Second)
	if c.Timeout != time.Second {
		t.Errorf("explicit timeout overridden: %s", c.Timeout)
	}
}
