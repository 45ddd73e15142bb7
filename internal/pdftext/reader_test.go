package pdftext_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"op-pipeline-backend/internal/pdftext"
)

func TestReader_RejectsEmptyInput(t *testing.T) {
	r := pdftext.NewReader(pdftext.Config{MaxPages: 1})
	_, err := r.ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, pdftext.ErrUnreadable)
}

func TestReader_RejectsNonPDF(t *testing.T) {
	r := pdftext.NewReader(pdftext.Config{})
	_, err := r.ExtractText(context.Background(), []byte("CLIENTE: not a pdf at all"))
	assert.ErrorIs(t, err, pdftext.ErrUnreadable)
}

func TestReader_RejectsTruncatedPDF(t *testing.T) {
	r := pdftext.NewReader(pdftext.Config{})
	_, err := r.ExtractText(context.Background(), []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	assert.ErrorIs(t, err, pdftext.ErrUnreadable)
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/op.pdf")
	require.NoError(t, err)
	return data
}

func TestReader_KeepsRowTogether(t *testing.T) {
	r := pdftext.NewReader(pdftext.Config{MaxPages: 1})
	text, err := r.ExtractText(context.Background(), readFixture(t))
	require.NoError(t, err)

	// "Casa dos Brindes" is drawn before its label but sits on the same row.
	assert.Equal(t, "ORDEM DE PRODUCAO N 4455\nCLIENTE: Casa dos Brindes\nQUANTIDADE: 300\n", text)
}

func TestReader_MaxPages(t *testing.T) {
	data := readFixture(t)

	tests := []struct {
		name     string
		maxPages int
		pages    []string
	}{
		{"first page only", 1, []string{"CLIENTE: Casa dos Brindes"}},
		{"two pages", 2, []string{"CLIENTE: Casa dos Brindes", "PAGINA DOIS"}},
		{"unlimited", 0, []string{"CLIENTE: Casa dos Brindes", "PAGINA DOIS", "PAGINA TRES"}},
		{"limit above page count", 10, []string{"CLIENTE: Casa dos Brindes", "PAGINA DOIS", "PAGINA TRES"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pdftext.NewReader(pdftext.Config{MaxPages: tt.maxPages})
			text, err := r.ExtractText(context.Background(), data)
			require.NoError(t, err)

			pages := strings.Split(text, "\f")
			require.Len(t, pages, len(tt.pages))
			for i, want := range tt.pages {
				assert.Contains(t, pages[i], want)
			}
		})
	}
}

func TestReader_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pdftext.NewReader(pdftext.Config{}).ExtractText(ctx, readFixture(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic(t *testing.T) {
	var tr pdftext.TextReader = pdftext.Static("CLIENTE: Alfa")
	got, err := tr.ExtractText(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "CLIENTE: Alfa", got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.ExtractText(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
