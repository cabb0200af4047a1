package fill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
	"github.com/joseph-ayodele/pa-autofill/internal/pdf"
)

// FormBackend reads and writes PDF form fields.
type FormBackend interface {
	Widgets(path string) ([]entity.FormWidget, error)
	// FillWidgets writes template to out with the given field values and
	// reports how many fields received a value.
	FillWidgets(template, out string, values map[string]string) (int, error)
	Merge(out string, inputs ...string) error
}

// fillableKinds are the pdfcpu form export groups that hold free text values.
var fillableKinds = []string{"textfield", "datefield", "combobox"}

// PDFCPUBackend implements FormBackend with github.com/pdfcpu/pdfcpu form export/fill.
type PDFCPUBackend struct {
	reader pdf.AcroFormReader
	conf   *model.Configuration
}

func NewPDFCPUBackend() *PDFCPUBackend {
	conf := model.NewDefaultConfiguration()
	return &PDFCPUBackend{reader: pdf.AcroFormReader{Conf: conf}, conf: conf}
}

func (b *PDFCPUBackend) Widgets(path string) ([]entity.FormWidget, error) {
	return b.reader.Widgets(path)
}

func (b *PDFCPUBackend) FillWidgets(template, out string, values map[string]string) (int, error) {
	tmp, err := os.MkdirTemp("", "pa-fill-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	exported := filepath.Join(tmp, "form.json")
	if err := api.ExportFormFile(template, exported, b.conf); err != nil {
		return 0, fmt.Errorf("export form: %w", err)
	}
	raw, err := os.ReadFile(exported)
	if err != nil {
		return 0, fmt.Errorf("read form export: %w", err)
	}

	edited, n, err := ApplyFormValues(raw, values)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	filled := filepath.Join(tmp, "fill.json")
	if err := os.WriteFile(filled, edited, 0o600); err != nil {
		return 0, fmt.Errorf("write form values: %w", err)
	}
	if err := api.FillFormFile(template, filled, out, b.conf); err != nil {
		return 0, fmt.Errorf("fill form: %w", err)
	}
	return n, nil
}

func (b *PDFCPUBackend) Merge(out string, inputs ...string) error {
	if err := api.MergeCreateFile(inputs, out, false, b.conf); err != nil {
		return fmt.Errorf("merge pdf: %w", err)
	}
	return nil
}

// ApplyFormValues sets "value" on exported text, date and combo box fields whose
// "name" has an entry in values. A combo box only takes a value matching one of
// its options (case-insensitive), written as the option text; pdfcpu clears any
// other value. It returns the edited document and the number of fields set.
func ApplyFormValues(export []byte, values map[string]string) ([]byte, int, error) {
	var doc map[string]any
	if err := json.Unmarshal(export, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode form export: %w", err)
	}
	forms, _ := doc["forms"].([]any)

	n := 0
	for _, f := range forms {
		form, ok := f.(map[string]any)
		if !ok {
			continue
		}
		for _, kind := range fillableKinds {
			fields, _ := form[kind].([]any)
			for _, fld := range fields {
				m, ok := fld.(map[string]any)
				if !ok {
					continue
				}
				name, _ := m["name"].(string)
				v, ok := values[name]
				if !ok {
					continue
				}
				if kind == "combobox" {
					if v, ok = matchOption(m["options"], v); !ok {
						continue
					}
				}
				m["value"] = v
				n++
			}
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("encode form values: %w", err)
	}
	return out, n, nil
}

func matchOption(options any, v string) (string, bool) {
	opts, _ := options.([]any)
	want := strings.TrimSpace(v)
	for _, o := range opts {
		if s, ok := o.(string); ok && strings.EqualFold(strings.TrimSpace(s), want) {
			return s, true
		}
	}
	return "", false
}
