package main

import "testing"

func TestParseAPIKeys(t *testing.T) {
	keys, err := parseAPIKeys(" k1:100 , k2:5 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys["k1"] != 100 || keys["k2"] != 5 {
		t.Fatalf("unexpected table: %v", keys)
	}
}

func TestParseAPIKeys_EmptyIsAllowed(t *testing.T) {
	keys, err := parseAPIKeys("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty table, got %v", keys)
	}
}

func TestParseAPIKeys_RejectsMalformedEntries(t *testing.T) {
	for _, raw := range []string{"semquota", "k:", "k:abc", "k:0", ":10"} {
		if _, err := parseAPIKeys(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
