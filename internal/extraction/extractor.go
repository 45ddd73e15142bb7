// Package extraction recovers work order fields from the text layer of an OP
// document using ordered, first-match-wins label rules.
package extraction

import (
	"errors"

	"op-pipeline-backend/internal/coerce"
)

// ErrEmptyDocument is returned when there is no text to extract from.
var ErrEmptyDocument = errors.New("empty document text")

// Result holds the extracted fields. A nil field means "not found"; absent
// fields are never reported as errors.
type Result struct {
	IssueDate   *string `json:"issue_date"`
	DueDate     *string `json:"due_date"`
	OrderNumber *string `json:"order_number"`
	Client      *string `json:"client"`
	Product     *string `json:"product"`
	Quantity    *int    `json:"quantity"`
	// QuantityRaw is the capture before coercion, so callers can tell a
	// missing quantity from a malformed one.
	QuantityRaw *string `json:"quantity_raw"`
	// Rules names the rule that produced each field that was found.
	Rules map[Field]string `json:"rules,omitempty"`
}

type Extractor struct {
	rules  []FieldRules
	locale coerce.Locale
}

type Option func(*Extractor)

// WithRules replaces the rule chains.
func WithRules(rules []FieldRules) Option {
	return func(e *Extractor) { e.rules = rules }
}

// WithLocale sets the locale used to coerce the quantity.
func WithLocale(l coerce.Locale) Option {
	return func(e *Extractor) { e.locale = l }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		rules:  DefaultRules(),
		locale: coerce.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// ExtractFields runs the default pt-BR rules over raw document text.
func ExtractFields(documentText string) (*Result, error) {
	return defaultExtractor.Extract(documentText)
}

// Extract normalizes documentText and resolves every field chain against it.
func (e *Extractor) Extract(documentText string) (*Result, error) {
	text := NormalizeText(documentText)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	res := &Result{Rules: make(map[Field]string)}
	for _, fr := range e.rules {
		m, ok := fr.Resolve(text)
		if !ok {
			continue
		}
		res.Rules[fr.Field] = m.Rule

		v := m.Value
		switch fr.Field {
		case FieldIssueDate:
			res.IssueDate = &v
		case FieldDueDate:
			res.DueDate = &v
		case FieldOrderNumber:
			res.OrderNumber = &v
		case FieldClient:
			res.Client = &v
		case FieldProduct:
			res.Product = &v
		case FieldQuantity:
			res.QuantityRaw = &v
			if n, ok := e.locale.ParseQuantity(v); ok {
				res.Quantity = &n
			}
		}
	}
	return res, nil
}
