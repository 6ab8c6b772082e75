package printing

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// DefaultTemplate returns the built-in report template with the given file
// name, e.g. "release-note.html"
func DefaultTemplate(name string) (string, bool) {
	content, err := defaultTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// DefaultTemplateNames lists the built-in report templates
func DefaultTemplateNames() []string {
	entries, err := fs.ReadDir(defaultTemplates, "templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".html") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
