package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
)

// ValidatePDFPath checks that path names an existing regular .pdf file.
func ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return common.NewAppError("VALIDATION_ERROR", "file path cannot be empty", common.ErrInvalidInput)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("file is not a PDF (has extension %q)", ext), common.ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return common.NewAppError("NOT_FOUND", "file does not exist: "+path, common.ErrNotFound)
		}
		return common.NewAppError("VALIDATION_ERROR", "cannot access file: "+path, err)
	}
	if !info.Mode().IsRegular() {
		return common.NewAppError("VALIDATION_ERROR", "not a regular file: "+path, common.ErrInvalidInput)
	}
	return nil
}
