package env

import (
	"testing"
	"time"
)

func TestString_Default(t *testing.T) {
	got := String("TRACKER_ENV_STRING_DOES_NOT_EXIST", "fallback")
	if got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
}

func TestString_Override(t *testing.T) {
	t.Setenv("TRACKER_ENV_STRING_KEY", "value")
	got := String("TRACKER_ENV_STRING_KEY", "fallback")
	if got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
}

func TestDuration_Override(t *testing.T) {
	t.Setenv("TRACKER_ENV_DURATION_KEY", "250ms")
	got, err := Duration("TRACKER_ENV_DURATION_KEY", 5*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 250*time.Millisecond {
		t.Fatalf("Duration()=%v, want 250ms", got)
	}
}

func TestDuration_Invalid(t *testing.T) {
	t.Setenv("TRACKER_ENV_DURATION_INVALID", "not-a-duration")
	if _, err := Duration("TRACKER_ENV_DURATION_INVALID", 5*time.Second); err == nil {
		t.Fatalf("Duration() expected error")
	}
}

func TestInt(t *testing.T) {
	got, err := Int("TRACKER_ENV_INT_DOES_NOT_EXIST", 5000)
	if err != nil || got != 5000 {
		t.Fatalf("Int()=%d err=%v, want 5000", got, err)
	}
	t.Setenv("TRACKER_ENV_INT_KEY", "8080")
	got, err = Int("TRACKER_ENV_INT_KEY", 5000)
	if err != nil || got != 8080 {
		t.Fatalf("Int()=%d err=%v, want 8080", got, err)
	}
	t.Setenv("TRACKER_ENV_INT_KEY", "port")
	if _, err := Int("TRACKER_ENV_INT_KEY", 5000); err == nil {
		t.Fatalf("Int() expected error")
	}
}

func TestBlankCountsAsUnset(t *testing.T) {
	t.Setenv("TRACKER_ENV_BLANK_KEY", "   ")
	if got := String("TRACKER_ENV_BLANK_KEY", "fallback"); got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
	got, err := Int("TRACKER_ENV_BLANK_KEY", 7)
	if err != nil || got != 7 {
		t.Fatalf("Int()=%d err=%v, want 7", got, err)
	}
}

func TestString_Trimmed(t *testing.T) {
	t.Setenv("TRACKER_ENV_TRIM_KEY", "  value\n")
	if got := String("TRACKER_ENV_TRIM_KEY", ""); got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
}

func TestStringList(t *testing.T) {
	def := []string{"*"}
	if got := StringList("TRACKER_ENV_LIST_DOES_NOT_EXIST", def); len(got) != 1 || got[0] != "*" {
		t.Fatalf("StringList()=%v, want [*]", got)
	}
	t.Setenv("TRACKER_ENV_LIST_KEY", " http://a.test, ,http://b.test ")
	got := StringList("TRACKER_ENV_LIST_KEY", def)
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("StringList()=%v, want [http://a.test http://b.test]", got)
	}
	t.Setenv("TRACKER_ENV_LIST_KEY", " , ")
	if got := StringList("TRACKER_ENV_LIST_KEY", def); len(got) != 1 || got[0] != "*" {
		t.Fatalf("StringList()=%v, want default", got)
	}
}
