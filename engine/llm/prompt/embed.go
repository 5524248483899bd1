package prompt

import (
	"embed"
	"io/fs"

	"github.com/spf13/afero"
)

//go:embed templates/*.txt
var templateFS embed.FS

// EmbeddedTemplates exposes the built-in templates as a read-only filesystem.
func EmbeddedTemplates() afero.Fs {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return afero.FromIOFS{FS: sub}
}
