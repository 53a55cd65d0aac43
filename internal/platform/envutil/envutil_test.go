package envutil

import "testing"

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int=%d want 7", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 42 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("Int=%d want 42", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"1": true, "yes": true, "ON": true, "0": false, "nope": false}
	for raw, want := range cases {
		t.Setenv("ENVUTIL_TEST_BOOL", raw)
		if got := Bool("ENVUTIL_TEST_BOOL", !want); got != want {
			t.Fatalf("Bool(%q)=%v want %v", raw, got, want)
		}
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "")
	if got := Bool("ENVUTIL_TEST_BOOL", true); !got {
		t.Fatalf("expected default when unset")
	}
}
