package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// maxFieldDepth bounds the AcroForm Kids recursion on malformed files.
const maxFieldDepth = 32

// AcroFormReader walks the AcroForm field tree with github.com/pdfcpu/pdfcpu.
type AcroFormReader struct {
	Conf *model.Configuration
}

func (r AcroFormReader) Widgets(path string) (widgets []entity.FormWidget, err error) {
	defer recoverInto(&err, "read form")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := r.Conf
	if conf == nil {
		conf = model.NewDefaultConfiguration()
	}
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	xref := ctx.XRefTable

	root, err := xref.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	acroObj, ok := root.Find("AcroForm")
	if !ok {
		return nil, nil
	}
	acro, err := xref.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return nil, nil
	}
	fieldsObj, ok := acro.Find("Fields")
	if !ok {
		return nil, nil
	}
	fields, err := xref.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("acroform fields: %w", err)
	}

	w := walker{xref: xref}
	for _, o := range fields {
		w.visit(o, "", "", 0)
	}
	return w.out, nil
}

type walker struct {
	xref *model.XRefTable
	out  []entity.FormWidget
}

// visit records terminal fields. Names are joined with "." down the tree and
// the field type is inherited from the nearest ancestor that sets it.
func (w *walker) visit(o types.Object, parentName, parentType string, depth int) {
	if depth > maxFieldDepth {
		return
	}
	d, err := w.xref.DereferenceDict(o)
	if err != nil || d == nil {
		return
	}

	name := parentName
	if partial := w.text(d, "T"); partial != "" {
		if name != "" {
			name += "."
		}
		name += partial
	}
	ft := parentType
	if n := d.NameEntry("FT"); n != nil {
		ft = *n
	}

	if kidsObj, ok := d.Find("Kids"); ok {
		kids, err := w.xref.DereferenceArray(kidsObj)
		if err == nil && w.hasNamedKid(kids) {
			for _, k := range kids {
				w.visit(k, name, ft, depth+1)
			}
			return
		}
	}
	if name == "" {
		return
	}

	w.out = append(w.out, entity.FormWidget{
		Name:  name,
		Type:  ft,
		Value: w.text(d, "V"),
		Rect:  w.rect(d),
	})
}

// hasNamedKid distinguishes child fields from a field's own widget annotations.
func (w *walker) hasNamedKid(kids types.Array) bool {
	for _, k := range kids {
		d, err := w.xref.DereferenceDict(k)
		if err != nil || d == nil {
			continue
		}
		if _, ok := d.Find("T"); ok {
			return true
		}
	}
	return false
}

func (w *walker) text(d types.Dict, key string) string {
	o, ok := d.Find(key)
	if !ok {
		return ""
	}
	o, err := w.xref.Dereference(o)
	if err != nil || o == nil {
		return ""
	}
	switch v := o.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return v.Value()
		}
		return s
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return ""
		}
		return s
	case types.Name:
		return v.Value()
	}
	return ""
}

func (w *walker) rect(d types.Dict) [4]float64 {
	var out [4]float64
	o, ok := d.Find("Rect")
	if !ok {
		// terminal fields with a single widget kid keep Rect on the kid
		kidsObj, ok := d.Find("Kids")
		if !ok {
			return out
		}
		kids, err := w.xref.DereferenceArray(kidsObj)
		if err != nil || len(kids) == 0 {
			return out
		}
		kid, err := w.xref.DereferenceDict(kids[0])
		if err != nil || kid == nil {
			return out
		}
		if o, ok = kid.Find("Rect"); !ok {
			return out
		}
	}
	arr, err := w.xref.DereferenceArray(o)
	if err != nil || len(arr) != 4 {
		return out
	}
	for i, v := range arr {
		out[i] = number(v)
	}
	return out
}

func number(o types.Object) float64 {
	switch v := o.(type) {
	case types.Float:
		return v.Value()
	case types.Integer:
		return float64(v.Value())
	}
	return 0
}

// FieldTypeLabel names a PDF field type for display.
func FieldTypeLabel(ft string) string {
	switch strings.TrimPrefix(ft, "/") {
	case "Tx":
		return "text"
	case "Btn":
		return "button"
	case "Ch":
		return "choice"
	case "Sig":
		return "signature"
	}
	return "unknown"
}
