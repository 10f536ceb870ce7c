package raw

import "testing"

func TestConf(t *testing.T) {
	t.Setenv("RAWT_LOG_FORMAT", " json ")
	t.Setenv("RAWT_LOG_CALLER", "YES")
	t.Setenv("RAWT_LOG_COLOR", "nope")
	t.Setenv("RAWT_LOG_SAMPLE_EVERY", "10")
	t.Setenv("RAWT_LOG_BAD_INT", "-3")

	c := New().Prefix("RAWT_").Prefix("LOG_")
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"get", c.Get("FORMAT", "console"), "json"},
		{"get default", c.Get("LEVEL", "debug"), "debug"},
		{"bool yes", c.GetBool("CALLER", false), true},
		{"bool junk", c.GetBool("COLOR", true), false},
		{"bool default", c.GetBool("MISSING", true), true},
		{"int", c.GetInt("SAMPLE_EVERY", 0), 10},
		{"int negative", c.GetInt("BAD_INT", 1), 1},
		{"int default", c.GetInt("MISSING", 2), 2},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, tc.got, tc.want)
		}
	}
}
