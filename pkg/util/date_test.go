package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeFractionalOffset(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10.123+00:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Second() != 10 || got.Nanosecond() != 123000000 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimePostgres(t *testing.T) {
	got, ok := ParseTime("2024-10-10 10:10:10.5+00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Hour() != 10 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeUnixMillis(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got, ok := ParseTime(strconv.FormatInt(want.UnixMilli(), 10))
	if !ok || !got.Equal(want) {
		t.Fatalf("unexpected %v %v", got, ok)
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("7", 1) != 7 || ParseIntDefault("x", 1) != 1 || ParseIntDefault("", 3) != 3 {
		t.Fatalf("unexpected ParseIntDefault result")
	}
}
