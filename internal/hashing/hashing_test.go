package hashing

import (
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	// sha256("") is a well-known constant
	got := Hash(nil)
	want := "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("Hash(nil) = %v, want %v", got, want)
	}

	if Hash([]byte("a")) == Hash([]byte("b")) {
		t.Error("different inputs should hash differently")
	}
}

func TestCanonicalize(t *testing.T) {
	type inner struct {
		Zeta  int    `json:"zeta"`
		Alpha string `json:"alpha"`
	}
	type outer struct {
		Beta  []inner          `json:"beta"`
		Alpha map[string]int   `json:"alpha"`
		Gamma *float64         `json:"gamma,omitempty"`
		Delta map[string][]any `json:"delta,omitempty"`
	}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "struct fields sorted",
			value: inner{Zeta: 1, Alpha: "a"},
			want:  `{"alpha":"a","zeta":1}`,
		},
		{
			name: "nested values sorted",
			value: outer{
				Beta:  []inner{{Zeta: 2, Alpha: "x"}},
				Alpha: map[string]int{"b": 2, "a": 1},
			},
			want: `{"alpha":{"a":1,"b":2},"beta":[{"alpha":"x","zeta":2}]}`,
		},
		{
			name:  "generic map",
			value: map[string]any{"z": true, "m": nil, "a": []any{"q", 1.5}},
			want:  `{"a":["q",1.5],"m":null,"z":true}`,
		},
		{
			name:  "array order preserved",
			value: []string{"c", "a", "b"},
			want:  `["c","a","b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.value)
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHashValue_FieldOrderIndependent(t *testing.T) {
	type ab struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type ba struct {
		B int `json:"b"`
		A int `json:"a"`
	}

	h1, err := HashValue(ab{A: 1, B: 2})
	if err != nil {
		t.Fatalf("HashValue() error = %v", err)
	}
	h2, err := HashValue(ba{B: 2, A: 1})
	if err != nil {
		t.Fatalf("HashValue() error = %v", err)
	}
	h3, err := HashValue(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("HashValue() error = %v", err)
	}

	if h1 != h2 || h2 != h3 {
		t.Errorf("hashes differ: %s %s %s", h1, h2, h3)
	}
	if !strings.HasPrefix(h1, "sha256:") || len(h1) != len("sha256:")+64 {
		t.Errorf("HashValue() = %q, want sha256:<64 hex>", h1)
	}
}

func TestHashValue_Unmarshalable(t *testing.T) {
	if _, err := HashValue(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("expected error for unmarshalable value")
	}
}

func TestFingerprint(t *testing.T) {
	f1 := Fingerprint([]byte("rules"))
	f2 := Fingerprint([]byte("rules"))
	if f1 != f2 {
		t.Errorf("Fingerprint not deterministic: %s != %s", f1, f2)
	}
	if !strings.HasPrefix(f1, "blake3:") {
		t.Errorf("Fingerprint() = %q, want blake3: prefix", f1)
	}
	if f1 == Fingerprint([]byte("rules2")) {
		t.Error("different inputs should fingerprint differently")
	}
}
