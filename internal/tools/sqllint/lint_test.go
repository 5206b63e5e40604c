package main

import (
	"strings"
	"testing"
)

func TestLintSource(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		wants []string
	}{
		{
			name: "marked query",
			src:  "package q\nconst QOne = `--sql 2f702cb6-f6f6-46dc-aa20-90682bab4e74\nselect 1;`\n",
		},
		{
			name:  "missing marker",
			src:   "package q\nconst QOne = `select 1;`\n",
			wants: []string{"missing or invalid"},
		},
		{
			name:  "malformed marker",
			src:   "package q\nconst QOne = `--sql not-a-uuid\nselect 1;`\n",
			wants: []string{"missing or invalid"},
		},
		{
			name: "non sql string",
			src:  "package q\nconst Greeting = \"hello there\"\n",
		},
		{
			name: "duplicate marker",
			src: "package q\n" +
				"const QOne = `--sql 2f702cb6-f6f6-46dc-aa20-90682bab4e74\nselect 1;`\n" +
				"const QTwo = `--sql 2f702cb6-f6f6-46dc-aa20-90682bab4e74\nselect 2;`\n",
			wants: []string{"already used by QOne"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLinter()
			if err := l.lintSource("q.go", tt.src); err != nil {
				t.Fatalf("lintSource: %v", err)
			}
			if len(l.violations) != len(tt.wants) {
				t.Fatalf("expected %d violations, got %v", len(tt.wants), l.violations)
			}
			for i, want := range tt.wants {
				if got := l.violations[i].String(); !strings.Contains(got, want) {
					t.Fatalf("violation %d = %q, want it to contain %q", i, got, want)
				}
			}
		})
	}
}

func TestDuplicateAcrossFiles(t *testing.T) {
	l := newLinter()
	first := "package q\nconst QA = `--sql 18b3da46-7a35-4773-94e6-c9c113b31e9e\nselect 1;`\n"
	second := "package q\nconst QB = `--sql 18b3da46-7a35-4773-94e6-c9c113b31e9e\nselect 2;`\n"
	if err := l.lintSource("a.go", first); err != nil {
		t.Fatalf("lint a.go: %v", err)
	}
	if err := l.lintSource("b.go", second); err != nil {
		t.Fatalf("lint b.go: %v", err)
	}
	if len(l.violations) != 1 {
		t.Fatalf("expected one violation, got %v", l.violations)
	}
	if v := l.violations[0]; v.file != "b.go" || !strings.Contains(v.message, "a.go:2") {
		t.Fatalf("unexpected violation %v", v)
	}
}
