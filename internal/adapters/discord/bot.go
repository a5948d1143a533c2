package discord

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/adapters/storage"
	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

const (
	SourceChat    = "discord"
	SourceReceipt = "discord-receipt"

	summaryLimit   = 10
	messageTimeout = 2 * time.Minute
)

// Pipeline is the subset of the extractor the bot needs.
type Pipeline interface {
	ExtractFromDocument(ctx context.Context, source string) domain.ExtractedTransaction
	ExtractFromLine(ctx context.Context, text string) (domain.LineExpense, bool)
	Categorize(ctx context.Context, merchant, description string) string
	LineTransaction(line domain.LineExpense, category string) domain.ExtractedTransaction
	Taxonomy() domain.Taxonomy
}

type Store interface {
	ports.TransactionStore
	ByCategory(ctx context.Context, category string, limit int) ([]storage.Transaction, error)
}

// Message is the part of a Discord message the bot reads.
type Message struct {
	AuthorID  string
	ChannelID string
	Content   string
	Images    []string // attachment URLs
}

type Bot struct {
	session   *discordgo.Session
	pipeline  Pipeline
	store     Store
	channelID string
	log       zerolog.Logger
}

func NewBot(token, channelID string, p Pipeline, store Store, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := &Bot{
		session:   session,
		pipeline:  p,
		store:     store,
		channelID: channelID,
		log:       log,
	}

	session.AddHandler(bot.handleMessage)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.log.Info().Str("channel", b.channelID).Msg("discord bot connected")
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.log.Warn().Err(err).Msg("closing discord session")
	}
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return // own messages
	}

	msg := Message{AuthorID: m.Author.ID, ChannelID: m.ChannelID, Content: m.Content}
	for _, a := range m.Attachments {
		if isImage(a.ContentType, a.Filename) {
			msg.Images = append(msg.Images, a.URL)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	reply := b.Handle(ctx, msg)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to send reply")
	}
}

// Handle processes one message and returns the reply, or "" when the
// message is ignored.
func (b *Bot) Handle(ctx context.Context, msg Message) string {
	if msg.ChannelID != b.channelID {
		return ""
	}

	content := strings.TrimSpace(msg.Content)
	switch {
	case strings.HasPrefix(content, "!summary"):
		return b.summary(ctx, strings.Fields(content)[1:])
	case len(msg.Images) > 0:
		return b.receipts(ctx, msg)
	case content != "":
		return b.line(ctx, msg.AuthorID, content)
	}
	return ""
}

func (b *Bot) line(ctx context.Context, userID, text string) string {
	exp, ok := b.pipeline.ExtractFromLine(ctx, text)
	if !ok {
		return ""
	}
	category := b.pipeline.Categorize(ctx, exp.Merchant, text)

	tx := b.pipeline.LineTransaction(exp, category)
	if _, err := b.store.Save(ctx, tx, ports.SaveMeta{UserID: userID, Source: SourceChat}); err != nil {
		b.log.Error().Err(err).Msg("failed to save chat expense")
		return fmt.Sprintf("Failed to save transaction: %v", err)
	}
	return fmt.Sprintf("Logged: %s – %.2f (%s)", tx.Merchant, tx.Amount, tx.Category)
}

func (b *Bot) receipts(ctx context.Context, msg Message) string {
	var replies []string
	for _, url := range msg.Images {
		tx := b.pipeline.ExtractFromDocument(ctx, url)
		if tx.Status == domain.StatusEmpty {
			replies = append(replies, "Could not read that receipt.")
			continue
		}
		if _, err := b.store.Save(ctx, tx, ports.SaveMeta{UserID: msg.AuthorID, Source: SourceReceipt}); err != nil {
			b.log.Error().Err(err).Msg("failed to save receipt")
			replies = append(replies, fmt.Sprintf("Failed to save receipt: %v", err))
			continue
		}
		replies = append(replies, fmt.Sprintf("Logged receipt: %s – %.2f %s (%s)", tx.Merchant, tx.Amount, tx.Currency, tx.Category))
	}
	return strings.Join(replies, "\n")
}

func (b *Bot) summary(ctx context.Context, args []string) string {
	switch len(args) {
	case 0:
		return b.allCategories(ctx)
	case 1:
		return b.category(ctx, b.pipeline.Taxonomy().Match(args[0]))
	default:
		return "Usage: !summary [category]"
	}
}

func (b *Bot) allCategories(ctx context.Context) string {
	totals, err := b.store.CategoryTotals(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to get summary: %v", err)
	}
	if len(totals) == 0 {
		return "No transactions found."
	}

	names := make([]string, 0, len(totals))
	for c := range totals {
		names = append(names, c)
	}
	sort.Strings(names)

	var sb strings.Builder
	var total float64
	sb.WriteString("**Transaction Summary**\n\n")
	for _, c := range names {
		fmt.Fprintf(&sb, "**%s**: %.2f\n", c, totals[c])
		total += totals[c]
	}
	fmt.Fprintf(&sb, "\n**Total**: %.2f", total)
	return sb.String()
}

func (b *Bot) category(ctx context.Context, category string) string {
	rows, err := b.store.ByCategory(ctx, category, summaryLimit)
	if err != nil {
		return fmt.Sprintf("Failed to get transactions: %v", err)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No transactions found for category: %s", category)
	}

	var sb strings.Builder
	var total float64
	fmt.Fprintf(&sb, "**%s Transactions**\n\n", category)
	for _, r := range rows {
		total += r.Amount
		fmt.Fprintf(&sb, "- **%.2f %s** %s (%s)\n", r.Amount, r.Currency, r.Merchant, r.CreatedAt.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&sb, "\n**Total %s**: %.2f (%d transactions)", category, total, len(rows))
	return sb.String()
}

func isImage(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
