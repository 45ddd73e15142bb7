package extraction_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"op-pipeline-backend/internal/extraction"
)

const sampleOP = `ORDEM DE PRODUÇÃO Nº 12.345
EMISSÃO: 01/03/2025
CLIENTE:   Brindes   Paulista LTDA
PRODUTO: Pin Gaveta Personalizada 3cm, banho ouro
QUANTIDADE TOTAL: 1.500
DATA DE ENTREGA: 20/03/2025
VALOR TOTAL: 3.750,00
`

func TestExtractFields_FullDocument(t *testing.T) {
	res, err := extraction.ExtractFields(sampleOP)
	require.NoError(t, err)

	require.NotNil(t, res.OrderNumber)
	assert.Equal(t, "12.345", *res.OrderNumber)
	require.NotNil(t, res.IssueDate)
	assert.Equal(t, "01/03/2025", *res.IssueDate)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "20/03/2025", *res.DueDate)
	require.NotNil(t, res.Client)
	assert.Equal(t, "Brindes Paulista LTDA", *res.Client)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Pin Gaveta", *res.Product)
	require.NotNil(t, res.Quantity)
	assert.Equal(t, 1500, *res.Quantity)
	require.NotNil(t, res.QuantityRaw)
	assert.Equal(t, "1.500", *res.QuantityRaw)

	assert.Equal(t, "quantidade_total", res.Rules[extraction.FieldQuantity])
	assert.Equal(t, "ordem_de_producao", res.Rules[extraction.FieldOrderNumber])
}

func TestExtractFields_ClientAndProduct(t *testing.T) {
	res, err := extraction.ExtractFields("CLIENTE: Acme Corp\nPRODUTO: Widget X")
	require.NoError(t, err)

	require.NotNil(t, res.Client)
	assert.Equal(t, "Acme Corp", *res.Client)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Widget X", *res.Product)

	assert.Nil(t, res.Quantity)
	assert.Nil(t, res.QuantityRaw)
	assert.Nil(t, res.DueDate)
	assert.Nil(t, res.IssueDate)
	assert.Nil(t, res.OrderNumber)
}

func TestExtractFields_SpecificQuantityLabelWins(t *testing.T) {
	text := "TOTAL: 3\nCLIENTE: Loja Alfa\nQUANTIDADE TOTAL: 500\n"
	res, err := extraction.ExtractFields(text)
	require.NoError(t, err)
	require.NotNil(t, res.Quantity)
	assert.Equal(t, 500, *res.Quantity)
}

func TestExtractFields_QuantityFallbackChain(t *testing.T) {
	cases := []struct {
		text string
		want int
		rule string
	}{
		{"QTD: 1.200", 1200, "qtd"},
		{"QTD TOTAL 80", 80, "qtd"},
		{"QUANTIDADE: 75\nTOTAL: 9", 75, "quantidade"},
		{"VALOR TOTAL: 3", 3, "total_or_qtd"},
		{"QUANTIDADE TOTAL: 2,5", 3, "quantidade_total"},
	}
	for _, tc := range cases {
		res, err := extraction.ExtractFields(tc.text)
		require.NoError(t, err, tc.text)
		require.NotNil(t, res.Quantity, tc.text)
		assert.Equal(t, tc.want, *res.Quantity, tc.text)
		assert.Equal(t, tc.rule, res.Rules[extraction.FieldQuantity], tc.text)
	}
}

func TestExtractFields_MalformedQuantityKeepsRaw(t *testing.T) {
	res, err := extraction.ExtractFields("CLIENTE: X\nQTD: .")
	require.NoError(t, err)
	assert.Nil(t, res.Quantity)
	require.NotNil(t, res.QuantityRaw)
	assert.Equal(t, ".", *res.QuantityRaw)
}

func TestExtractFields_EmptyValueIsNotFound(t *testing.T) {
	res, err := extraction.ExtractFields("CLIENTE:   \nPRODUTO: Chaveiro Resinado")
	require.NoError(t, err)
	assert.Nil(t, res.Client)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Chaveiro Resinado", *res.Product)
}

func TestExtractFields_ValueOnNextLine(t *testing.T) {
	res, err := extraction.ExtractFields("CLIENTE:\n\nAcme Corp\nPRODUTO: Caneca")
	require.NoError(t, err)
	require.NotNil(t, res.Client)
	assert.Equal(t, "Acme Corp", *res.Client)
	assert.Equal(t, "cliente_next_line", res.Rules[extraction.FieldClient])
}

func TestExtractFields_ProductRefinement(t *testing.T) {
	cases := map[string]string{
		"PRODUTO: Pin Relevo Com Pintura":          "Pin Relevo",
		"PRODUTO: Chaveiro Relevo Sem Pintura":     "Chaveiro Relevo Sem Pintura",
		"PRODUTO: Caneca personalizada 300ml":      "Caneca personalizada 300ml",
		"PRODUTO: Spinner colorido":                "Spinner colorido",
		"PRODUTO: Chaveiro":                        "Chaveiro",
		"PRODUTO: Kit com Pin esmaltado, 2 cores": "Pin esmaltado",
	}
	for text, want := range cases {
		res, err := extraction.ExtractFields(text)
		require.NoError(t, err, text)
		require.NotNil(t, res.Product, text)
		assert.Equal(t, want, *res.Product, text)
	}
}

func TestExtractFields_DueDateVariants(t *testing.T) {
	res, err := extraction.ExtractFields("PRAZO DE ENTREGA\n05.04.2025")
	require.NoError(t, err)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "05.04.2025", *res.DueDate)

	res, err = extraction.ExtractFields("Prazo: 7/4/25")
	require.NoError(t, err)
	require.NotNil(t, res.DueDate)
	assert.Equal(t, "7/4/25", *res.DueDate)
	assert.Equal(t, "prazo", res.Rules[extraction.FieldDueDate])
}

func TestExtractFields_OrderNumberFallback(t *testing.T) {
	res, err := extraction.ExtractFields("OP Nº 7788\nCLIENTE: Alfa")
	require.NoError(t, err)
	require.NotNil(t, res.OrderNumber)
	assert.Equal(t, "7788", *res.OrderNumber)
	assert.Equal(t, "op_label", res.Rules[extraction.FieldOrderNumber])
}

func TestExtractFields_PageBreaksSplitLines(t *testing.T) {
	res, err := extraction.ExtractFields("CLIENTE: Alfa\fPRODUTO: Beta")
	require.NoError(t, err)
	require.NotNil(t, res.Client)
	assert.Equal(t, "Alfa", *res.Client)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Beta", *res.Product)
}

func TestExtractFields_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   \n\t  ", "\x00\x01"} {
		res, err := extraction.ExtractFields(text)
		assert.ErrorIs(t, err, extraction.ErrEmptyDocument)
		assert.Nil(t, res)
	}
}

func TestExtractor_CustomRulesFirstMatchWins(t *testing.T) {
	rules := []extraction.FieldRules{{
		Field: extraction.FieldClient,
		Rules: []extraction.Rule{
			{Name: "empty", Pattern: regexp.MustCompile(`COMPRADOR:[ ]*([^\n]*)`)},
			{Name: "first", Pattern: regexp.MustCompile(`PARA:[ ]*([^\n]*)`)},
			{Name: "second", Pattern: regexp.MustCompile(`DE:[ ]*([^\n]*)`)},
		},
	}}
	ex := extraction.New(extraction.WithRules(rules))

	res, err := ex.Extract("COMPRADOR:\nDE: Fornecedor\nPARA: Cliente Final")
	require.NoError(t, err)
	require.NotNil(t, res.Client)
	assert.Equal(t, "Cliente Final", *res.Client)
	assert.Equal(t, "first", res.Rules[extraction.FieldClient])
}

func TestFieldRules_FirstLineOfBlock(t *testing.T) {
	fr := extraction.FieldRules{
		Field:     extraction.FieldProduct,
		FirstLine: true,
		Rules: []extraction.Rule{
			{Name: "notas", Pattern: regexp.MustCompile(`(?s)NOTAS:(.*)`)},
		},
	}
	m, ok := fr.Resolve("NOTAS:\n\n   primeira   linha\nsegunda linha")
	require.True(t, ok)
	assert.Equal(t, "primeira linha", m.Value)
	assert.Equal(t, "notas", m.Rule)

	_, ok = fr.Resolve("NOTAS:\n \n")
	assert.False(t, ok)
}

func TestNormalizeText(t *testing.T) {
	in := "a\u00a0\u00a0b\t\tc\r\n d  \x07"
	assert.Equal(t, "a b c\n d", extraction.NormalizeText(in))
	assert.Equal(t, "", extraction.NormalizeText(""))
	assert.Equal(t, "a b", extraction.NormalizeText("a\u00a0\u00a0b"))
	assert.Equal(t, "x\n y", extraction.NormalizeText("  x   \n y "))
}
