package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

type fakeDocs struct {
	source string
	image  []byte
}

func (f *fakeDocs) ExtractFromDocument(_ context.Context, source string) domain.ExtractedTransaction {
	f.source = source
	return domain.ExtractedTransaction{Merchant: "Shoprite", Amount: 14.03, Currency: "NGN", Items: []string{}, Category: "Food", Status: domain.StatusOK}
}

func (f *fakeDocs) ExtractFromImage(_ context.Context, image []byte) domain.ExtractedTransaction {
	f.image = image
	return domain.ExtractedTransaction{Merchant: domain.DefaultMerchant, Items: []string{}, Category: "Other", Status: domain.StatusEmpty}
}

func TestLineCommand(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"line", "Chicken", "Republic", "4500"})

	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, `{"merchant":"Chicken Republic","amount":4500}`, out.String())
}

func TestLineCommandNoAmount(t *testing.T) {
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"line", "hello", "there"})

	assert.ErrorIs(t, cmd.Execute(), errNoAmount)
	assert.Contains(t, errOut.String(), "no amount found")
}

func TestRunDocumentSource(t *testing.T) {
	out := &bytes.Buffer{}
	f := &fakeDocs{}

	require.NoError(t, runDocument(context.Background(), out, f, "https://example.com/r.png"))
	assert.Equal(t, "https://example.com/r.png", f.source)
	assert.Contains(t, out.String(), `"merchant": "Shoprite"`)
	assert.Contains(t, out.String(), `"status": "ok"`)
}

func TestRunDocumentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))

	out := &bytes.Buffer{}
	f := &fakeDocs{}
	require.NoError(t, runDocument(context.Background(), out, f, path))
	assert.Equal(t, []byte("not really a png"), f.image)
	assert.Empty(t, f.source)
	assert.Contains(t, out.String(), `"status": "empty"`)
}
