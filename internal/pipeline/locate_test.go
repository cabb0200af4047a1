package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
)

func TestFindInputs_PatternOrder(t *testing.T) {
	tests := []struct {
		name         string
		files        []string
		wantPA       string
		wantReferral string
	}{
		{"exact names", []string{"PA.pdf", "referral_package.pdf"}, "PA.pdf", "referral_package.pdf"},
		{"exact beats prefix", []string{"PA_v2.pdf", "PA.pdf", "referral_2.pdf", "Referral_Package.pdf"}, "PA.pdf", "Referral_Package.pdf"},
		{"prefix picks first sorted", []string{"PA_b.pdf", "PA_a.pdf", "referral_z.pdf", "referral_a.pdf"}, "PA_a.pdf", "referral_a.pdf"},
		{"lower case", []string{"pa.pdf", "referral.pdf"}, "pa.pdf", "referral.pdf"},
		{"nothing", []string{"notes.txt", "form.pdf"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := makeFolder(t, t.TempDir(), "P", tt.files...)
			want := func(f string) string {
				if f == "" {
					return ""
				}
				return filepath.Join(dir, f)
			}
			assert.Equal(t, want(tt.wantPA), FindPAForm(dir))
			assert.Equal(t, want(tt.wantReferral), FindReferralPackage(dir))
		})
	}
}

func TestFindInputs_GlobCharactersInFolderName(t *testing.T) {
	dir := makeFolder(t, t.TempDir(), "Smith [2]", "PA.pdf")
	assert.Equal(t, filepath.Join(dir, "PA.pdf"), FindPAForm(dir))
}

func TestListFolders(t *testing.T) {
	root := t.TempDir()
	makeFolder(t, root, "b_ready", "PA.pdf", "referral_package.pdf")
	makeFolder(t, root, "a_partial", "PA.pdf")
	makeFolder(t, root, "c_empty")

	folders, err := ListFolders(root)
	require.NoError(t, err)
	require.Len(t, folders, 3)

	assert.Equal(t, "a_partial", folders[0].Name)
	assert.True(t, folders[0].HasPAForm)
	assert.False(t, folders[0].Ready)
	assert.Equal(t, "b_ready", folders[1].Name)
	assert.True(t, folders[1].Ready)
	assert.Equal(t, filepath.Join(root, "b_ready"), folders[1].Path)
	assert.False(t, folders[2].HasPAForm)
	assert.False(t, folders[2].HasReferralPackage)

	_, err = ListFolders(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}
