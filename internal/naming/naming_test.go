package naming

import (
	"errors"
	"path"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		reason Reason
	}{
		{"", ReasonEmpty},
		{"notes", ReasonBadExtension},
		{"virus.exe", ReasonBadExtension},
		{"notes.TXT", ReasonBadExtension},
		{"notes.md.bak", ReasonBadExtension},
		{"a/b.txt", ReasonReservedCharacter},
		{`a\b.md`, ReasonReservedCharacter},
		{"../etc.md", ReasonReservedCharacter},
		{"c:d.md", ReasonReservedCharacter},
		{"what?.txt", ReasonReservedCharacter},
		{"star*.txt", ReasonReservedCharacter},
		{`"quoted".md`, ReasonReservedCharacter},
		{"<tag>.md", ReasonReservedCharacter},
		{"pipe|.gif", ReasonReservedCharacter},
		{"notes.txt", ""},
		{"report.md", ""},
		{"cat.jpg", ""},
		{"anim.gif", ""},
		{"with space [1].md", ""},
		{"r_v000.md", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.name)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tc.name, err)
				}
				return
			}
			var ine *InvalidNameError
			if !errors.As(err, &ine) {
				t.Fatalf("Validate(%q) = %v, want *InvalidNameError", tc.name, err)
			}
			if ine.Reason != tc.reason {
				t.Errorf("Validate(%q) reason = %q, want %q", tc.name, ine.Reason, tc.reason)
			}
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("errors.Is(%v, ErrInvalidName) = false", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got, err := Resolve("doc.md"); err != nil || got != "doc.md" {
		t.Fatalf("Resolve(doc.md) = %q, %v", got, err)
	}
	for _, name := range []string{"dir/doc.md", "../doc.md", `..\doc.md`, ""} {
		if _, err := Resolve(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Resolve(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"a.txt": KindText,
		"a.md":  KindMarkdown,
		"a.jpg": KindImage,
		"a.gif": KindImage,
		"a.exe": KindUnknown,
		"a":     KindUnknown,
	}
	for name, want := range tests {
		if got := KindOf(name); got != want {
			t.Errorf("KindOf(%q) = %v, want %v", name, got, want)
		}
	}
	if KindImage.Versionable() {
		t.Error("images must not be versionable")
	}
	if !KindMarkdown.Versionable() || !KindText.Versionable() {
		t.Error("text documents must be versionable")
	}
}

func TestCopyName(t *testing.T) {
	tests := map[string]string{
		"report.md":     "report_copy.md",
		"notes.txt":     "notes_copy.txt",
		"v1.2.notes.md": "v1.2.notes_copy.md",
	}
	for in, want := range tests {
		if got := CopyName(in); got != want {
			t.Errorf("CopyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHistoryName(t *testing.T) {
	if got := HistoryName("r", 0, "md"); got != "r_v000.md" {
		t.Errorf("got %q", got)
	}
	if got := HistoryName("r", 42, "txt"); got != "r_v042.txt" {
		t.Errorf("got %q", got)
	}
	if got := HistoryName("r", 999, "md"); got != "r_v999.md" {
		t.Errorf("got %q", got)
	}
}

func TestParseHistoryName(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		base, v, ext, ok := ParseHistoryName("my_v_doc_v017.md")
		if !ok || base != "my_v_doc" || v != 17 || ext != "md" {
			t.Fatalf("got %q %d %q %v", base, v, ext, ok)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for _, name := range []string{"r.md", "r_v1.md", "r_v0001.md", "r_vabc.md", "r_v000", "r_v-01.md"} {
			if _, _, _, ok := ParseHistoryName(name); ok {
				t.Errorf("ParseHistoryName(%q) unexpectedly ok", name)
			}
		}
	})
}

func TestEntryOf(t *testing.T) {
	if v, ok := EntryOf("r.md", "r_v003.md"); !ok || v != 3 {
		t.Errorf("EntryOf = %d, %v", v, ok)
	}
	if _, ok := EntryOf("r.md", "r_v003.txt"); ok {
		t.Error("entry with a different extension must not match")
	}
	if _, ok := EntryOf("r.md", "other_v003.md"); ok {
		t.Error("entry of another document must not match")
	}
}

func TestHistoryPattern(t *testing.T) {
	tests := []struct {
		doc   string
		entry string
		match bool
	}{
		{"r.md", "r_v000.md", true},
		{"r.md", "r_v999.md", true},
		{"r.md", "r_v00a.md", false},
		{"r.md", "r_v000.txt", false},
		{"r.md", "rr_v000.md", false},
		{"r.md", "r_copy_v000.md", false},
		{"[draft].md", "[draft]_v001.md", true},
		{"[draft].md", "d_v001.md", false},
	}
	for _, tc := range tests {
		got, err := path.Match(HistoryPattern(tc.doc), tc.entry)
		if err != nil {
			t.Fatalf("pattern for %q: %v", tc.doc, err)
		}
		if got != tc.match {
			t.Errorf("match(%q, %q) = %v, want %v", tc.doc, tc.entry, got, tc.match)
		}
	}
}
