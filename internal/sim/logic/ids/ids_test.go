package ids

import "testing"

func TestDeviceIDRoundTrip(t *testing.T) {
	id := DeviceID("contact_mat", 12, 64, -9)
	typ, x, y, z, ok := ParseDeviceID(id)
	if !ok {
		t.Fatalf("ParseDeviceID failed for %q", id)
	}
	if typ != "contact_mat" || x != 12 || y != 64 || z != -9 {
		t.Fatalf("unexpected parse result: typ=%q x=%d y=%d z=%d", typ, x, y, z)
	}
}

func TestParseDeviceIDRejectsInvalid(t *testing.T) {
	tests := []string{
		"",
		"lever",
		"@1,2,3",
		"lever@1,2",
		"lever@1,2,x",
	}
	for _, tc := range tests {
		if _, _, _, _, ok := ParseDeviceID(tc); ok {
			t.Fatalf("expected parse failure for %q", tc)
		}
	}
}
