package extraction

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// convertPDFToImages конвертирует PDF в PNG-страницы утилитой pdftoppm
// из пакета poppler. Poppler должен быть установлен в системе.
func convertPDFToImages(pdfPath string) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "invoiceaudit-pages-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cmd := exec.Command("pdftoppm", "-png", pdfPath, filepath.Join(tempDir, "page"))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed (is poppler installed?): %w, output: %s", err, string(output))
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}

	// Сортировка по имени сохраняет порядок страниц.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var images [][]byte
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read page %s: %w", entry.Name(), err)
		}
		images = append(images, content)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm did not generate any images")
	}
	return images, nil
}
