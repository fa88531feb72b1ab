package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int            `json:"code"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

type Agent struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

func (a Agent) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("agent missing id")
	}
	return nil
}

type Job struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func (j Job) Validate() error {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return fmt.Errorf("job missing id")
	case strings.TrimSpace(j.Title) == "":
		return fmt.Errorf("job missing title")
	case strings.TrimSpace(j.Status) == "":
		return fmt.Errorf("job missing status")
	}
	return nil
}

// JobRef is the slim job projection embedded in transactions.
type JobRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	SenderID  string    `json:"sender_id"`
	Sender    *Agent    `json:"sender,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return fmt.Errorf("message missing id")
	case strings.TrimSpace(m.SenderID) == "":
		return fmt.Errorf("message missing sender_id")
	case strings.TrimSpace(m.Content) == "":
		return fmt.Errorf("message missing content")
	case m.CreatedAt.IsZero():
		return fmt.Errorf("message missing created_at")
	}
	return nil
}

type Pagination struct {
	Total  *int `json:"total,omitempty"`
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
}

type MessagePage struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// Total is the server-reported total, or the page length when the server
// omits it.
func (p MessagePage) Total() int {
	if p.Pagination.Total != nil {
		return *p.Pagination.Total
	}
	return len(p.Messages)
}

func (p MessagePage) Validate() error {
	if p.Messages == nil {
		return fmt.Errorf("message page missing messages")
	}
	for i, m := range p.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

type Direction string

const (
	DirectionReceived Direction = "Received"
	DirectionSent     Direction = "Sent"
)

type Transaction struct {
	ID          string              `json:"id"`
	FromAgentID string              `json:"from_agent_id"`
	ToAgentID   string              `json:"to_agent_id"`
	FromAgent   *Agent              `json:"from_agent,omitempty"`
	ToAgent     *Agent              `json:"to_agent,omitempty"`
	Job         *JobRef             `json:"job,omitempty"`
	AmountUSDC  decimal.NullDecimal `json:"amount_usdc"`
	TxHash      string              `json:"tx_hash,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (t Transaction) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return fmt.Errorf("transaction missing id")
	case strings.TrimSpace(t.FromAgentID) == "":
		return fmt.Errorf("transaction missing from_agent_id")
	case strings.TrimSpace(t.ToAgentID) == "":
		return fmt.Errorf("transaction missing to_agent_id")
	case !t.AmountUSDC.Valid:
		return fmt.Errorf("transaction missing amount_usdc")
	case t.AmountUSDC.Decimal.IsNegative():
		return fmt.Errorf("transaction amount_usdc is negative")
	case t.CreatedAt.IsZero():
		return fmt.Errorf("transaction missing created_at")
	}
	return nil
}

// DirectionFor classifies the transaction from the caller's point of view.
func (t Transaction) DirectionFor(selfID string) Direction {
	if t.ToAgentID == selfID {
		return DirectionReceived
	}
	return DirectionSent
}

// DisplayAmount renders the signed two-decimal amount, e.g. "+12.50 USDC".
func (t Transaction) DisplayAmount(selfID string) string {
	sign := "-"
	if t.DirectionFor(selfID) == DirectionReceived {
		sign = "+"
	}
	return sign + t.AmountUSDC.Decimal.StringFixed(2) + " USDC"
}

// Counterparty is the agent on the other side of the transfer.
func (t Transaction) Counterparty(selfID string) *Agent {
	if t.DirectionFor(selfID) == DirectionReceived {
		return t.FromAgent
	}
	return t.ToAgent
}

type History struct {
	Transactions []Transaction `json:"transactions"`
}

func (h History) Validate() error {
	if h.Transactions == nil {
		return fmt.Errorf("history missing transactions")
	}
	for i, tx := range h.Transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	return nil
}

// TruncateTransactions keeps the first limit transactions. A limit that is
// not positive or not smaller than the list returns the list unchanged.
func TruncateTransactions(txs []Transaction, limit int) []Transaction {
	if limit <= 0 || len(txs) <= limit {
		return txs
	}
	return txs[:limit]
}

type HireRequest struct {
	JobID string `json:"job_id"`
	BidID string `json:"bid_id"`
}

type HireResult struct {
	JobID      string `json:"job_id"`
	HiredAgent Agent  `json:"hired_agent"`
	Status     string `json:"status"`
}

func (h HireResult) Validate() error {
	switch {
	case strings.TrimSpace(h.JobID) == "":
		return fmt.Errorf("hire result missing job_id")
	case strings.TrimSpace(h.Status) == "":
		return fmt.Errorf("hire result missing status")
	}
	if err := h.HiredAgent.Validate(); err != nil {
		return fmt.Errorf("hired_agent: %w", err)
	}
	return nil
}

type SendMessageRequest struct {
	Content string `json:"content"`
}
