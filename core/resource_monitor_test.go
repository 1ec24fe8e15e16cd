package core

import "testing"

func TestExtractStatsMemory(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"raw_int", `{"memory_stats":{"usage":1048576,"limit":2097152}}`, "1048576"},
		{"quoted_string", `{"memory_stats":{"usage":"1.23GiB","limit":"2.00GiB"}}`, "1.23GiB"},
		{"missing_key", `{"cpu_stats":{}}`, ""},
		{"unterminated", `{"usage":1048576`, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := extractStatsMemory(c.line); got != c.want {
				t.Fatalf("extractStatsMemory(%q) = %q, want %q", c.line, got, c.want)
			}
		})
	}
}

func TestParseDockerStatsMemory(t *testing.T) {
	cases := []struct {
		name  string
		usage string
		want  int64
	}{
		{"raw_bytes", "1048576", 1048576},
		{"kibibytes", "2KiB", 2 * 1024},
		{"mebibytes", "1.5MiB", int64(1.5 * 1024 * 1024)},
		{"gibibytes", "1.23GiB", 1320702443}, // 1.23 * 2^30, truncated toward zero
		{"unrecognized", "not-a-number", 0},
		{"empty", "", 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := parseDockerStatsMemory(c.usage); got != c.want {
				t.Fatalf("parseDockerStatsMemory(%q) = %d, want %d", c.usage, got, c.want)
			}
		})
	}
}

func TestMonitorPeakTracksMaximumObservation(t *testing.T) {
	m := newMonitor(nil, "container-under-test")
	m.observe(100)
	m.observe(50)
	m.observe(300)
	m.observe(200)
	if got := m.peakMemoryBytes(); got != 300 {
		t.Fatalf("peakMemoryBytes() = %d, want 300", got)
	}
}

func TestMonitorReadCgroupMemoryMissingFileIsNotError(t *testing.T) {
	d := &Driver{cgroupRoot: t.TempDir()}
	m := newMonitor(d, "nonexistent-container")
	if _, ok := m.readCgroupMemory(); ok {
		t.Fatal("expected readCgroupMemory to report no sample for a missing cgroup file")
	}
}

func TestMonitorReadCgroupMemoryEmptyRootDisablesSampling(t *testing.T) {
	d := &Driver{cgroupRoot: ""}
	m := newMonitor(d, "any-container")
	if _, ok := m.readCgroupMemory(); ok {
		t.Fatal("expected readCgroupMemory to report no sample when cgroupRoot is unset")
	}
}
