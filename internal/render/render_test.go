package render

import (
	"strings"
	"testing"
)

func TestMarkdownRender(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "heading",
			src:  "# Hello\n",
			want: []string{`<h1 id="hello">Hello</h1>`},
		},
		{
			name: "gfm defaults",
			src:  "| a |\n|---|\n| 1 |\n\n~~old~~\n\n- [x] done\n\nhttps://example.com\n",
			want: []string{"<table>", "<del>old</del>", `type="checkbox"`, `<a href="https://example.com">`},
		},
		{
			name:    "explicit extensions only",
			opts:    Options{Extensions: []string{"footnote", "bogus"}},
			src:     "~~old~~ x[^1]\n\n[^1]: note\n",
			want:    []string{"footnote"},
			notWant: []string{"<del>"},
		},
		{
			name:    "raw html suppressed",
			src:     "<script>alert(1)</script>\n",
			want:    []string{"<!-- raw HTML omitted -->"},
			notWant: []string{"<script>"},
		},
		{
			name: "raw html unsafe",
			opts: Options{Unsafe: true},
			src:  "<b>bold</b>\n",
			want: []string{"<b>bold</b>"},
		},
		{
			name: "hard wraps",
			opts: Options{HardWraps: true},
			src:  "one\ntwo\n",
			want: []string{"one<br>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewMarkdown(tt.opts).Render([]byte(tt.src))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(out), w) {
					t.Errorf("output %q does not contain %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(string(out), w) {
					t.Errorf("output %q contains %q", out, w)
				}
			}
		})
	}
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body := SplitFrontMatter([]byte("---\ntitle: Notes\ntags: [a, b]\n---\n# Body\n"))
	if meta.Title != "Notes" || len(meta.Tags) != 2 {
		t.Errorf("meta = %+v", meta)
	}
	if strings.Contains(string(body), "title:") || !strings.Contains(string(body), "# Body") {
		t.Errorf("body = %q", body)
	}

	src := []byte("# Plain\n")
	meta, body = SplitFrontMatter(src)
	if meta.Title != "" || string(body) != string(src) {
		t.Errorf("plain = %+v %q", meta, body)
	}
}

func TestDocument(t *testing.T) {
	m := NewMarkdown(Options{})
	t.Run("Text", func(t *testing.T) {
		r, err := m.Document("a.txt", []byte("# not markdown <b>"))
		if err != nil {
			t.Fatal(err)
		}
		if r.ContentType != "text/plain; charset=utf-8" || string(r.Body) != "# not markdown <b>" {
			t.Errorf("r = %+v", r)
		}
	})
	t.Run("Markdown", func(t *testing.T) {
		r, err := m.Document("a.md", []byte("---\ntitle: <Hi>\n---\n# Head\n"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(r.ContentType, "text/html") {
			t.Errorf("ContentType = %q", r.ContentType)
		}
		body := string(r.Body)
		if !strings.Contains(body, "<title>&lt;Hi&gt;</title>") || !strings.Contains(body, `<h1 id="head">Head</h1>`) {
			t.Errorf("body = %q", body)
		}
		if r.Meta.Title != "<Hi>" {
			t.Errorf("Meta = %+v", r.Meta)
		}
	})
	t.Run("MarkdownUntitled", func(t *testing.T) {
		r, err := m.Document("plain.md", []byte("text"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(r.Body), "<title>plain.md</title>") {
			t.Errorf("body = %q", r.Body)
		}
	})
	t.Run("Images", func(t *testing.T) {
		for name, want := range map[string]string{"a.jpg": "image/jpeg", "a.gif": "image/gif"} {
			r, err := m.Document(name, []byte{1, 2})
			if err != nil {
				t.Fatal(err)
			}
			if r.ContentType != want || len(r.Body) != 2 {
				t.Errorf("%s: %+v", name, r)
			}
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if _, err := m.Document("a.exe", nil); err == nil {
			t.Error("expected error")
		}
	})
}
