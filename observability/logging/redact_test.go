package logging

import "testing"

func TestMaskFieldRedactsUnknownKeys(t *testing.T) {
	attr := MaskField("secret", "hunter2")
	if attr.Value.String() != RedactedValue {
		t.Fatalf("secret leaked: %s", attr.Value.String())
	}

	attr = MaskField("module", "enrollment")
	if attr.Value.String() != "enrollment" {
		t.Fatalf("allowlisted key masked: %s", attr.Value.String())
	}

	attr = MaskField("token", "")
	if attr.Value.String() != "" {
		t.Fatalf("empty value rewritten: %s", attr.Value.String())
	}
}

func TestRedactionAllowlistIsSorted(t *testing.T) {
	keys := RedactionAllowlist()
	if len(keys) == 0 {
		t.Fatal("allowlist empty")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("allowlist not sorted at %d: %s >= %s", i, keys[i-1], keys[i])
		}
	}
	if !IsAllowlisted("Module") {
		t.Fatal("allowlist lookup should be case-insensitive")
	}
	if IsAllowlisted("password") {
		t.Fatal("password must not be allowlisted")
	}
}
