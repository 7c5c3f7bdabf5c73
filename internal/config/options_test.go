package config

import "testing"

func TestOptions_Bool(t *testing.T) {
	t.Parallel()

	o := Options{"a": true, "b": "false", "c": "1", "bad": "nope", "num": 3}

	tests := []struct {
		key  string
		def  bool
		want bool
	}{
		{"a", false, true},
		{"b", true, false},
		{"c", false, true},
		{"bad", true, true}, // unparseable falls back
		{"num", true, true}, // wrong type falls back
		{"absent", true, true},
		{"absent", false, false},
	}
	for _, tt := range tests {
		if got := o.Bool(tt.key, tt.def); got != tt.want {
			t.Errorf("Bool(%q, %v) = %v want %v", tt.key, tt.def, got, tt.want)
		}
	}
}

func TestOptions_Int(t *testing.T) {
	t.Parallel()

	// JSON decoding always delivers float64 for numbers.
	o := Options{"j": float64(42), "s": "7", "bad": "x"}

	if got := o.Int("j", 0); got != 42 {
		t.Errorf("Int(j) = %d", got)
	}
	if got := o.Int("s", 0); got != 7 {
		t.Errorf("Int(s) = %d", got)
	}
	if got := o.Int("bad", 9); got != 9 {
		t.Errorf("Int(bad) = %d", got)
	}
	if got := o.Int("absent", 5); got != 5 {
		t.Errorf("Int(absent) = %d", got)
	}
}

func TestOptions_Rune(t *testing.T) {
	t.Parallel()

	o := Options{"comma": ";", "tab": "\t", "empty": ""}

	if got := o.Rune("comma", ','); got != ';' {
		t.Errorf("Rune(comma) = %q", got)
	}
	if got := o.Rune("tab", ','); got != '\t' {
		t.Errorf("Rune(tab) = %q", got)
	}
	if got := o.Rune("empty", ','); got != ',' {
		t.Errorf("Rune(empty) = %q", got)
	}
	if got := o.Rune("absent", ','); got != ',' {
		t.Errorf("Rune(absent) = %q", got)
	}
}

func TestOptions_String(t *testing.T) {
	t.Parallel()

	o := Options{"enc": "windows-1252", "n": float64(3)}

	if got := o.String("enc", ""); got != "windows-1252" {
		t.Errorf("String(enc) = %q", got)
	}
	if got := o.String("n", ""); got != "3" {
		t.Errorf("String(n) = %q", got)
	}
	if got := o.String("absent", "utf-8"); got != "utf-8" {
		t.Errorf("String(absent) = %q", got)
	}
}
