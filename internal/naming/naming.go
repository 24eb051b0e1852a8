// Package naming validates document names and derives history entry names.
//
// Nothing in this package touches the filesystem. A document name is a
// basename with one of the allowed extensions; a history entry name is
// <base>_v<NNN>.<ext> where NNN is a zero-padded three digit version.
package naming

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxVersion is the highest version number a history entry can carry.
const MaxVersion = 999

// Reason identifies why a name was rejected.
type Reason string

const (
	// ReasonEmpty is returned for zero-length names.
	ReasonEmpty Reason = "empty"
	// ReasonBadExtension is returned when the extension is missing or not allowed.
	ReasonBadExtension Reason = "bad-extension"
	// ReasonReservedCharacter is returned when the base contains a reserved character.
	ReasonReservedCharacter Reason = "reserved-character"
)

// ErrInvalidName matches every *InvalidNameError with errors.Is.
var ErrInvalidName = errors.New("invalid name")

// InvalidNameError describes a rejected name.
type InvalidNameError struct {
	Name   string
	Reason Reason
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// Is reports whether target is ErrInvalidName.
func (e *InvalidNameError) Is(target error) bool {
	return target == ErrInvalidName
}

// Kind classifies a document by its extension.
type Kind int

const (
	// KindUnknown is any name without an allowed extension.
	KindUnknown Kind = iota
	// KindText is a plain text document.
	KindText
	// KindMarkdown is a markdown document.
	KindMarkdown
	// KindImage is a binary image. Images are neither versioned nor duplicated.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindMarkdown:
		return "markdown"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Versionable reports whether documents of this kind keep a history.
func (k Kind) Versionable() bool {
	return k == KindText || k == KindMarkdown
}

var extensions = map[string]Kind{
	"txt": KindText,
	"md":  KindMarkdown,
	"jpg": KindImage,
	"gif": KindImage,
}

const reservedCharacters = `\/:*?"<>|`

// Validate checks a proposed document or history name.
//
// It returns nil or an *InvalidNameError. The checks run in order: empty,
// extension, reserved characters in the name with its extension stripped.
func Validate(name string) error {
	if name == "" {
		return &InvalidNameError{Name: name, Reason: ReasonEmpty}
	}
	base, ext := Split(name)
	if _, ok := extensions[ext]; !ok {
		return &InvalidNameError{Name: name, Reason: ReasonBadExtension}
	}
	if strings.ContainsAny(base, reservedCharacters) {
		return &InvalidNameError{Name: name, Reason: ReasonReservedCharacter}
	}
	return nil
}

// Resolve validates name and rejects anything that is not already a basename.
func Resolve(name string) (string, error) {
	if err := Validate(name); err != nil {
		return "", err
	}
	if path.Base(filepath.ToSlash(name)) != name {
		return "", &InvalidNameError{Name: name, Reason: ReasonReservedCharacter}
	}
	return name, nil
}

// Split returns the name without its final extension and the extension
// without the dot. ext is empty when name has no dot.
func Split(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// KindOf classifies name by its extension.
func KindOf(name string) Kind {
	_, ext := Split(name)
	return extensions[ext]
}

// CopyName inserts "_copy" before the final extension: report.md becomes
// report_copy.md.
func CopyName(name string) string {
	base, ext := Split(name)
	return base + "_copy." + ext
}

// HistoryName formats the history entry name for a document base, version
// and extension. version must be in [0, MaxVersion].
func HistoryName(base string, version int, ext string) string {
	return fmt.Sprintf("%s_v%03d.%s", base, version, ext)
}

// ParseHistoryName splits a history entry name into the document base,
// version and extension. ok is false if name is not a history entry name.
func ParseHistoryName(name string) (base string, version int, ext string, ok bool) {
	stem, ext := Split(name)
	if ext == "" {
		return "", 0, "", false
	}
	i := strings.LastIndex(stem, "_v")
	if i < 0 || len(stem)-i-2 != 3 {
		return "", 0, "", false
	}
	digits := stem[i+2:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", 0, "", false
		}
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, "", false
	}
	return stem[:i], v, ext, true
}

// EntryOf reports whether entry is a history entry of document and returns
// its version.
func EntryOf(document, entry string) (int, bool) {
	docBase, docExt := Split(document)
	base, v, ext, ok := ParseHistoryName(entry)
	if !ok || base != docBase || ext != docExt {
		return 0, false
	}
	return v, true
}

// HistoryPattern returns a path.Match pattern matching exactly the history
// entries of document.
func HistoryPattern(document string) string {
	base, ext := Split(document)
	return escapeGlob(base) + "_v[0-9][0-9][0-9]." + escapeGlob(ext)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
