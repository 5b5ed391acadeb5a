package script

import "testing"

func TestClean(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"# Title\nBody text.", "Title\nBody text."},
		{"Markets were **very** strong.", "Markets were very strong."},
		{"An *italic* word.", "An italic word."},
		{"Use `nifty` index.", "Use nifty index."},
		{"- first\n- second", "first\nsecond"},
		{"1. one\n2. two", "one\ntwo"},
		{"Intro\n```\ncode\n```\nOutro", "Intro\n\nOutro"},
		{"Para one.\n\n\n\nPara two.", "Para one.\n\nPara two."},
		{"  __Strong__ and _soft_ words.  ", "Strong and soft words."},
		{"Cafe\u0301 opened.", "Caf\u00e9 opened."},
	}
	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
