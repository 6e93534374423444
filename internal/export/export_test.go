package export

import (
	"strings"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2026, time.August, 27, 10, 30, 0, 0, time.UTC)
	name := ObjectName("uid-123", now)

	if !strings.HasPrefix(name, "exports/2026/08/27/") {
		t.Errorf("object name %q not date-partitioned", name)
	}
	if !strings.HasSuffix(name, "-uid-123.json") {
		t.Errorf("object name %q missing user suffix", name)
	}

	// Names are unique per call so exports never overwrite each other.
	if ObjectName("uid-123", now) == name {
		t.Error("expected distinct object names for repeated exports")
	}
}
