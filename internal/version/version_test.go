package version

import (
	"strings"
	"testing"
)

func TestFullAndUserAgent(t *testing.T) {
	if !strings.HasPrefix(Full(), "devboot "+Version) {
		t.Fatalf("unexpected full version %q", Full())
	}
	if UserAgent() != "devboot/"+Version {
		t.Fatalf("unexpected user agent %q", UserAgent())
	}
}
