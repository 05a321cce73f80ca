package wizard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sampledocs/*.pdf
var sampleDocs embed.FS

// SampleDocumentNames lists the bundled upload documents in input order.
var SampleDocumentNames = []string{"business-license.pdf", "registration-certificate.pdf"}

// WriteSampleDocuments copies the bundled documents into dir and returns
// their paths in upload order. Used when no documents are configured.
func WriteSampleDocuments(dir string) ([]string, error) {
	paths := make([]string, 0, len(SampleDocumentNames))
	for _, name := range SampleDocumentNames {
		data, err := sampleDocs.ReadFile("sampledocs/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading bundled document %s: %w", name, err)
		}
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			return nil, fmt.Errorf("writing bundled document %s: %w", name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
