// Package export writes optional review artifacts built from a run's snapshots.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// WritePDF puts every image on its own page of a new PDF at dest, in order.
// An existing file at dest is replaced. With no images nothing is written.
func WritePDF(images []string, dest string) error {
	if len(images) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create PDF directory: %w", err)
	}
	// pdfcpu appends pages to an existing file
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(images, dest, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	return nil
}

// PageCount returns the number of pages of the PDF at path
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}
