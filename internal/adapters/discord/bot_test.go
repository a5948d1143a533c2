package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/storage"
	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
	"github.com/cp25sy5-modjot/expense-extractor/internal/usecase"
)

const channel = "c1"

// fakePipeline parses and normalizes lines with a real extractor and fakes
// the rest.
type fakePipeline struct {
	docs map[string]domain.ExtractedTransaction
}

var lines = usecase.NewExtractor(nil, nil)

func (f *fakePipeline) ExtractFromDocument(_ context.Context, source string) domain.ExtractedTransaction {
	if tx, ok := f.docs[source]; ok {
		return tx
	}
	return domain.ExtractedTransaction{Merchant: domain.DefaultMerchant, Category: "Other", Status: domain.StatusEmpty}
}

func (f *fakePipeline) ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool) {
	return lines.ExtractFromLine(ctx, text)
}

func (f *fakePipeline) LineTransaction(line domain.LineExpense, category string) domain.ExtractedTransaction {
	return lines.LineTransaction(line, category)
}

func (f *fakePipeline) Categorize(context.Context, string, string) string { return "Transport" }
func (f *fakePipeline) Taxonomy() domain.Taxonomy { return domain.DefaultTaxonomy() }

type saved struct {
	tx   domain.ExtractedTransaction
	meta ports.SaveMeta
}

type fakeStore struct {
	saved   []saved
	saveErr error
	totals  map[string]float64
	rows    []storage.Transaction
	asked   string
}

func (f *fakeStore) Save(_ context.Context, tx domain.ExtractedTransaction, meta ports.SaveMeta) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, saved{tx, meta})
	return "id", nil
}

func (f *fakeStore) CategoryTotals(context.Context) (map[string]float64, error) {
	return f.totals, nil
}

func (f *fakeStore) ByCategory(_ context.Context, category string, _ int) ([]storage.Transaction, error) {
	f.asked = category
	return f.rows, nil
}

func newBot(p Pipeline, s Store) *Bot {
	return &Bot{pipeline: p, store: s, channelID: channel, log: zerolog.Nop()}
}

func TestHandleLine(t *testing.T) {
	store := &fakeStore{}
	b := newBot(&fakePipeline{}, store)

	reply := b.Handle(context.Background(), Message{AuthorID: "u1", ChannelID: channel, Content: "Uber 4500"})
	assert.Equal(t, "Logged: Uber – 4500.00 (Transport)", reply)

	require.Len(t, store.saved, 1)
	got := store.saved[0]
	assert.Equal(t, ports.SaveMeta{UserID: "u1", Source: SourceChat}, got.meta)
	assert.Equal(t, "NGN", got.tx.Currency)
	assert.Equal(t, "Transport", got.tx.Category)
	assert.Equal(t, domain.StatusDegraded, got.tx.Status)
}

func TestHandleLongLineIsNormalizedBeforeSaving(t *testing.T) {
	store := &fakeStore{}
	b := newBot(&fakePipeline{}, store)

	text := strings.Repeat("Mama Put ", 75) + "4500.555"
	reply := b.Handle(context.Background(), Message{AuthorID: "u1", ChannelID: channel, Content: text})
	assert.True(t, strings.HasPrefix(reply, "Logged: "))
	assert.Contains(t, reply, "4500.56 (Transport)")

	require.Len(t, store.saved, 1)
	tx := store.saved[0].tx
	assert.LessOrEqual(t, len([]rune(tx.Merchant)), domain.MaxMerchantLen)
	assert.LessOrEqual(t, len([]rune(tx.Description)), domain.MaxDescriptionLen)
	assert.Equal(t, 4500.56, tx.Amount)
	assert.Equal(t, []string{}, tx.Items)
}

func TestHandleIgnores(t *testing.T) {
	store := &fakeStore{}
	b := newBot(&fakePipeline{}, store)
	ctx := context.Background()

	assert.Empty(t, b.Handle(ctx, Message{ChannelID: "other", Content: "Uber 4500"}))
	assert.Empty(t, b.Handle(ctx, Message{ChannelID: channel, Content: "good morning"}))
	assert.Empty(t, b.Handle(ctx, Message{ChannelID: channel, Content: "   "}))
	assert.Empty(t, store.saved)
}

func TestHandleSaveError(t *testing.T) {
	b := newBot(&fakePipeline{}, &fakeStore{saveErr: errors.New("disk full")})
	reply := b.Handle(context.Background(), Message{ChannelID: channel, Content: "Uber 4500"})
	assert.Contains(t, reply, "Failed to save transaction: disk full")
}

func TestHandleReceipts(t *testing.T) {
	store := &fakeStore{}
	p := &fakePipeline{docs: map[string]domain.ExtractedTransaction{
		"https://cdn/r1.png": {Merchant: "Shoprite", Amount: 14.03, Currency: "NGN", Category: "Food", Status: domain.StatusOK},
	}}
	b := newBot(p, store)

	reply := b.Handle(context.Background(), Message{
		AuthorID:  "u1",
		ChannelID: channel,
		Images:    []string{"https://cdn/r1.png", "https://cdn/blurry.png"},
	})
	assert.Equal(t, "Logged receipt: Shoprite – 14.03 NGN (Food)\nCould not read that receipt.", reply)
	require.Len(t, store.saved, 1)
	assert.Equal(t, SourceReceipt, store.saved[0].meta.Source)
}

func TestSummary(t *testing.T) {
	store := &fakeStore{totals: map[string]float64{"Transport": 4500, "Food": 1200.5}}
	b := newBot(&fakePipeline{}, store)

	reply := b.Handle(context.Background(), Message{ChannelID: channel, Content: "!summary"})
	assert.Equal(t, "**Transaction Summary**\n\n**Food**: 1200.50\n**Transport**: 4500.00\n\n**Total**: 5700.50", reply)

	empty := newBot(&fakePipeline{}, &fakeStore{})
	assert.Equal(t, "No transactions found.", empty.Handle(context.Background(), Message{ChannelID: channel, Content: "!summary"}))
}

func TestSummaryCategory(t *testing.T) {
	store := &fakeStore{rows: []storage.Transaction{
		{Merchant: "Uber", Amount: 4500, Currency: "NGN", CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}}
	b := newBot(&fakePipeline{}, store)

	reply := b.Handle(context.Background(), Message{ChannelID: channel, Content: "!summary transport"})
	assert.Equal(t, "Transport", store.asked)
	assert.Contains(t, reply, "**Transport Transactions**")
	assert.Contains(t, reply, "- **4500.00 NGN** Uber (Jan 15, 2024)")
	assert.Contains(t, reply, "(1 transactions)")

	assert.Equal(t, "Usage: !summary [category]",
		b.Handle(context.Background(), Message{ChannelID: channel, Content: "!summary a b"}))
}

func TestIsImage(t *testing.T) {
	assert.True(t, isImage("image/png", "x"))
	assert.True(t, isImage("", "receipt.JPG"))
	assert.False(t, isImage("application/pdf", "receipt.pdf"))
}
