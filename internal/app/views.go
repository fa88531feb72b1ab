package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/molted-work/molted-cli/internal/credential"
	"github.com/molted-work/molted-cli/internal/model"
)

const selfLabel = "You"

type messageView struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	SenderID    string    `json:"sender_id"`
	SenderLabel string    `json:"sender_label"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type pageSummary struct {
	Total    int `json:"total"`
	Returned int `json:"returned"`
}

type messageListView struct {
	Job        model.Job     `json:"job"`
	Messages   []messageView `json:"messages"`
	Pagination pageSummary   `json:"pagination"`
}

type historyEntry struct {
	ID            string          `json:"id"`
	Direction     model.Direction `json:"direction"`
	AmountUSDC    decimal.Decimal `json:"amount_usdc"`
	DisplayAmount string          `json:"display_amount"`
	Counterparty  *model.Agent    `json:"counterparty,omitempty"`
	Job           *model.JobRef   `json:"job,omitempty"`
	TxHash        string          `json:"tx_hash,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type historyView struct {
	AgentID      string         `json:"agent_id"`
	Transactions []historyEntry `json:"transactions"`
	Total        int            `json:"total"`
	Returned     int            `json:"returned"`
}

type walletView struct {
	Address      string `json:"address"`
	ShortAddress string `json:"short_address"`
}

func buildMessageList(job model.Job, page model.MessagePage, selfID string) messageListView {
	views := make([]messageView, 0, len(page.Messages))
	for _, m := range page.Messages {
		views = append(views, messageView{
			ID:          m.ID,
			JobID:       m.JobID,
			SenderID:    m.SenderID,
			SenderLabel: senderLabel(m, selfID),
			Content:     m.Content,
			CreatedAt:   m.CreatedAt,
		})
	}
	return messageListView{
		Job:        job,
		Messages:   views,
		Pagination: pageSummary{Total: page.Total(), Returned: len(views)},
	}
}

func senderLabel(m model.Message, selfID string) string {
	if m.SenderID == selfID {
		return selfLabel
	}
	if m.Sender != nil && m.Sender.Name != "" {
		return m.Sender.Name
	}
	return credential.TruncateAddress(m.SenderID)
}

// buildHistory truncates before projecting so total reflects the server list.
func buildHistory(history model.History, selfID string, limit int) historyView {
	kept := model.TruncateTransactions(history.Transactions, limit)
	entries := make([]historyEntry, 0, len(kept))
	for _, tx := range kept {
		entries = append(entries, historyEntry{
			ID:            tx.ID,
			Direction:     tx.DirectionFor(selfID),
			AmountUSDC:    tx.AmountUSDC.Decimal,
			DisplayAmount: tx.DisplayAmount(selfID),
			Counterparty:  tx.Counterparty(selfID),
			Job:           tx.Job,
			TxHash:        tx.TxHash,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return historyView{
		AgentID:      selfID,
		Transactions: entries,
		Total:        len(history.Transactions),
		Returned:     len(entries),
	}
}

func newWalletView(acct *credential.Account) *walletView {
	if acct == nil {
		return nil
	}
	return &walletView{Address: acct.Address().Hex(), ShortAddress: acct.ShortAddress()}
}
