// Package render turns notification fields into HTML email bodies.
//
// Templates are fixed HTML files with ${name} placeholders. Substitution is a
// single literal pass: values are inserted as-is (no HTML escaping) and are
// never re-scanned for placeholders. A placeholder without a value stays in the
// output verbatim.
package render

import (
	"embed"
	"errors"
	"fmt"

	"github.com/valyala/fasttemplate"
)

// TemplateID names one of the embedded email skeletons.
type TemplateID string

const (
	LoanSubmitted    TemplateID = "loan-submitted"
	DocumentFailed   TemplateID = "document-failed"
	DocumentVerified TemplateID = "document-verified"
)

// Placeholder names used by the templates.
const (
	FieldApplicantName  = "applicantName"
	FieldLoanID         = "loanId"
	FieldCurrencySymbol = "currencySymbol"
	FieldAmount         = "amount"
	FieldYear           = "year"
	FieldCompanyName    = "companyName"
	FieldHTMLContent    = "htmlContent"
)

const (
	startTag = "${"
	endTag   = "}"
)

var ErrUnknownTemplate = errors.New("unknown email template")

//go:embed templates/*.html
var templateFS embed.FS

var templateIDs = []TemplateID{LoanSubmitted, DocumentFailed, DocumentVerified}

// Renderer holds the parsed templates. It is immutable after New and safe for
// concurrent use.
type Renderer struct {
	templates map[TemplateID]*fasttemplate.Template
}

func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[TemplateID]*fasttemplate.Template, len(templateIDs))}
	for _, id := range templateIDs {
		src, err := templateFS.ReadFile("templates/" + string(id) + ".html")
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", id, err)
		}
		t, err := fasttemplate.NewTemplate(string(src), startTag, endTag)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", id, err)
		}
		r.templates[id] = t
	}
	return r, nil
}

// Render substitutes fields into the named template.
func (r *Renderer) Render(id TemplateID, fields map[string]string) (string, error) {
	t, ok := r.templates[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return t.ExecuteStringStd(values), nil
}
