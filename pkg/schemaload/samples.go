package schemaload

import (
	"embed"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

//go:embed samples/*.json
var samplesFS embed.FS

// Samples returns the bundled example forms. They back the portal server
// when no schema directory is configured.
func Samples() ([]model.FormSchema, error) {
	return FromFS(samplesFS, "samples")
}
