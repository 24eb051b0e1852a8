// Package render turns stored documents into what a browser displays.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/maruel/mdcms/internal/naming"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options configures the markdown engine.
type Options struct {
	// Extensions lists extension names; empty selects GFM, Linkify and TaskList.
	// Unknown names are ignored.
	Extensions []string
	HardWraps  bool
	// Unsafe passes raw HTML through. Off, raw HTML is replaced by a comment.
	Unsafe bool
}

// Meta is the YAML front matter of a markdown document.
type Meta struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Rendered is a document ready to be served.
type Rendered struct {
	ContentType string
	Body        []byte
	Meta        Meta
}

// Markdown renders markdown documents. It is safe for concurrent use.
type Markdown struct {
	engine goldmark.Markdown
}

// NewMarkdown returns a renderer configured with opts.
func NewMarkdown(opts Options) *Markdown {
	parserOptions := []parser.Option{parser.WithAutoHeadingID()}
	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	engineOptions := []goldmark.Option{goldmark.WithParserOptions(parserOptions...)}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}
	return &Markdown{engine: goldmark.New(engineOptions...)}
}

// Render converts markdown to an HTML fragment.
func (m *Markdown) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// Document prepares a stored document for display based on its extension.
// Text is served as is, markdown becomes an HTML page with its front matter
// removed, and images keep their bytes under their MIME type.
func (m *Markdown) Document(name string, content []byte) (Rendered, error) {
	switch naming.KindOf(name) {
	case naming.KindText:
		return Rendered{ContentType: "text/plain; charset=utf-8", Body: content}, nil
	case naming.KindMarkdown:
		meta, body := SplitFrontMatter(content)
		frag, err := m.Render(body)
		if err != nil {
			return Rendered{}, err
		}
		title := meta.Title
		if title == "" {
			title = name
		}
		var page bytes.Buffer
		if err := pageTmpl.Execute(&page, struct {
			Title string
			Body  template.HTML
		}{title, template.HTML(frag)}); err != nil { //nolint:gosec // G203: fragment comes from goldmark, which escapes unless Unsafe is set
			return Rendered{}, fmt.Errorf("page render: %w", err)
		}
		return Rendered{ContentType: "text/html; charset=utf-8", Body: page.Bytes(), Meta: meta}, nil
	case naming.KindImage:
		return Rendered{ContentType: imageType(name), Body: content}, nil
	default:
		return Rendered{}, fmt.Errorf("cannot render %q", name)
	}
}

// SplitFrontMatter separates YAML front matter from the markdown body.
// Content without front matter, or with front matter that does not parse, is
// returned whole.
func SplitFrontMatter(src []byte) (Meta, []byte) {
	var meta Meta
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		slog.Debug("Ignoring front matter", "err", err)
		return Meta{}, src
	}
	return meta, body
}

func imageType(name string) string {
	switch _, ext := naming.Split(name); ext {
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{.Body}}
</body>
</html>
`))

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Linkify, extension.TaskList}
	}
	var out []goldmark.Extender
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		out = append(out, ext)
		seen[key] = true
	}
	return out
}
