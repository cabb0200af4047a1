package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// FindPAForm returns the PA form inside dir, or "" when there is none.
func FindPAForm(dir string) string {
	return findFirst(dir, constants.PAFormPatterns)
}

// FindReferralPackage returns the referral package inside dir, or "".
func FindReferralPackage(dir string) string {
	return findFirst(dir, constants.ReferralPatterns)
}

// findFirst returns the first sorted match of the first pattern that matches a regular file.
func findFirst(dir string, patterns []string) string {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(globEscape(dir), pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if st, err := os.Stat(m); err == nil && st.Mode().IsRegular() {
				return m
			}
		}
	}
	return ""
}

// globEscape keeps folder names such as "Smith [2]" from being read as patterns.
func globEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']':
			out = append(out, '\\', r)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// subdirs lists the immediate subdirectories of dir, sorted by name.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("input directory %q does not exist", dir), common.ErrNotFound)
		}
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListFolders describes every patient folder under inputDir.
func ListFolders(inputDir string) ([]entity.FolderInfo, error) {
	names, err := subdirs(inputDir)
	if err != nil {
		return nil, err
	}
	out := make([]entity.FolderInfo, 0, len(names))
	for _, name := range names {
		out = append(out, DescribeFolder(filepath.Join(inputDir, name)))
	}
	return out, nil
}

// DescribeFolder reports which inputs a patient folder holds.
func DescribeFolder(dir string) entity.FolderInfo {
	hasPA := FindPAForm(dir) != ""
	hasRef := FindReferralPackage(dir) != ""
	return entity.FolderInfo{
		Name:               filepath.Base(dir),
		Path:               dir,
		HasPAForm:          hasPA,
		HasReferralPackage: hasRef,
		Ready:              hasPA && hasRef,
	}
}
