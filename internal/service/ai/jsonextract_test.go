package ai

import "testing"

func TestExtractEmbeddedJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"fenced", "İşte sonuç:\n```json\n{\"soru-cevaplar\": [{\"soru\": \"a\", \"cevap\": \"b\"}]}\n```", true},
		{"plain", `{"a": 1}`, true},
		{"no braces", "üzgünüm, yapamam", false},
		{"broken", `{"a": `, false},
		{"trailing brace text", `{"a": 1} ve sonra {bozuk}`, false},
		{"nested", `Cevap: {"a": {"b": 1}} bitti`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractEmbeddedJSON(tc.in)
			if (got != nil) != tc.want {
				t.Fatalf("ExtractEmbeddedJSON(%q) = %v", tc.in, got)
			}
		})
	}
}

func TestExtractEmbeddedJSONSeparateObjects(t *testing.T) {
	if got := ExtractEmbeddedJSON(`önce {"a": 1} sonra {"b": 2}`); got != nil {
		t.Fatalf("two separate objects must not parse, got %v", got)
	}
}
