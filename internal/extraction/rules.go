package extraction

import "regexp"

type Field string

const (
	FieldIssueDate   Field = "issue_date"
	FieldDueDate     Field = "due_date"
	FieldOrderNumber Field = "order_number"
	FieldClient      Field = "client"
	FieldProduct     Field = "product"
	FieldQuantity    Field = "quantity"
)

// Rule is a label pattern whose first capture group is the field value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Refinement narrows an accepted value to a canonical sub-phrase. The first
// capture group replaces the value when the pattern matches.
type Refinement struct {
	Name    string
	Pattern *regexp.Regexp
}

// FieldRules is the ordered rule chain for one field. Rules are evaluated in
// order and the first one yielding a non-empty value wins.
type FieldRules struct {
	Field       Field
	Rules       []Rule
	Refinements []Refinement
	// FirstLine keeps only the first non-empty line of a multi-line capture.
	FirstLine bool
}

// Match is the outcome of resolving one field.
type Match struct {
	Value      string
	Rule       string
	Refinement string
}

// Resolve runs the chain against normalized text.
func (fr FieldRules) Resolve(text string) (Match, bool) {
	for _, rule := range fr.Rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}

		var value string
		if fr.FirstLine {
			value, _ = pickFirstNonEmptyLine(m[1])
		} else {
			value = NormalizeText(m[1])
		}
		if value == "" {
			continue
		}

		match := Match{Value: value, Rule: rule.Name}
		for _, ref := range fr.Refinements {
			sm := ref.Pattern.FindStringSubmatch(value)
			if len(sm) < 2 {
				continue
			}
			if refined := NormalizeText(sm[1]); refined != "" {
				match.Value = refined
				match.Refinement = ref.Name
				break
			}
		}
		return match, true
	}
	return Match{}, false
}

const datePattern = `([0-9]{1,2}[/.-][0-9]{1,2}[/.-][0-9]{2,4})`

// DefaultRules are the chains for pt-BR production order (OP) documents.
func DefaultRules() []FieldRules {
	return []FieldRules{
		{
			Field: FieldIssueDate,
			Rules: []Rule{
				{Name: "emissao", Pattern: regexp.MustCompile(`(?i)EMISS[ÃA]O[^0-9]*` + datePattern)},
			},
		},
		{
			Field: FieldDueDate,
			Rules: []Rule{
				{Name: "data_prazo_entrega", Pattern: regexp.MustCompile(`(?i)(?:DATA DE ENTREGA|PRAZO DE ENTREGA)[^0-9]*` + datePattern)},
				{Name: "prazo", Pattern: regexp.MustCompile(`(?i)\bPRAZO\b[^0-9\n]*` + datePattern)},
			},
		},
		{
			Field: FieldOrderNumber,
			Rules: []Rule{
				{Name: "ordem_de_producao", Pattern: regexp.MustCompile(`(?i)ORDEM DE PRODU[ÇC][ÃA]O\s*N?[º°]?\.?\s*([0-9.\sA-Z]+?)(?:\s{2,}|\n|CLIENTE|$)`)},
				{Name: "op_label", Pattern: regexp.MustCompile(`(?i)\bOP\s*(?:N[º°]?\.?)?\s*[:#]?\s*([0-9][0-9./-]*)`)},
			},
		},
		{
			Field:     FieldClient,
			FirstLine: true,
			Rules: []Rule{
				{Name: "cliente", Pattern: regexp.MustCompile(`(?i)CLIENTE\s*:[ \t]*([^\n]*)`)},
				{Name: "cliente_next_line", Pattern: regexp.MustCompile(`(?i)CLIENTE\s*:[ \t]*\n\s*([^\n:]+)(?:\n|$)`)},
				{Name: "razao_social", Pattern: regexp.MustCompile(`(?i)RAZ[ÃA]O SOCIAL\s*:[ \t]*([^\n]*)`)},
			},
		},
		{
			Field:     FieldProduct,
			FirstLine: true,
			Rules: []Rule{
				{Name: "produto", Pattern: regexp.MustCompile(`(?i)PRODUTO\s*:[ \t]*([^\n]*)`)},
				{Name: "produto_next_line", Pattern: regexp.MustCompile(`(?i)PRODUTO\s*:[ \t]*\n\s*([^\n:]+)(?:\n|$)`)},
			},
			Refinements: []Refinement{
				{Name: "pin", Pattern: regexp.MustCompile(`(?i)\b(Pin\s+[^\s,]+)`)},
			},
		},
		{
			// Specific labels first: generic TOTAL/QTD labels also appear next to
			// unrelated numbers (prices, box counts) on the same page.
			Field: FieldQuantity,
			Rules: []Rule{
				{Name: "quantidade_total", Pattern: regexp.MustCompile(`(?i)QUANTIDADE\s+TOTAL[:\s]*([0-9.,]+)`)},
				{Name: "qtd", Pattern: regexp.MustCompile(`(?i)QTD(?:\s+TOTAL)?[:\s]*([0-9.,]+)`)},
				{Name: "quantidade", Pattern: regexp.MustCompile(`(?i)QUANTIDADE[:\s]*([0-9.,]+)`)},
				{Name: "total_or_qtd", Pattern: regexp.MustCompile(`(?i)(?:TOTAL|QTD)[:\s]*([0-9.,]+)`)},
			},
		},
	}
}
