package storage

import (
	"encoding/json"
	"time"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

// Transaction is a persisted extraction result.
type Transaction struct {
	ID          string `gorm:"primaryKey;size:36"`
	CreatedAt   time.Time
	UserID      string `gorm:"index"`
	Source      string
	Merchant    string
	Amount      float64
	Currency    string `gorm:"size:3"`
	Date        *string
	Items       string // JSON array
	Category    string `gorm:"index"`
	Description string
	Status      string
}

func fromDomain(id string, tx domain.ExtractedTransaction, userID, source string) (Transaction, error) {
	items := tx.Items
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          id,
		UserID:      userID,
		Source:      source,
		Merchant:    tx.Merchant,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Date:        tx.Date,
		Items:       string(b),
		Category:    tx.Category,
		Description: tx.Description,
		Status:      string(tx.Status),
	}, nil
}

// Domain converts the row back into the canonical record.
func (t Transaction) Domain() domain.ExtractedTransaction {
	items := []string{}
	_ = json.Unmarshal([]byte(t.Items), &items)
	return domain.ExtractedTransaction{
		Merchant:    t.Merchant,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Date:        t.Date,
		Items:       items,
		Category:    t.Category,
		Description: t.Description,
		Status:      domain.Status(t.Status),
	}
}
