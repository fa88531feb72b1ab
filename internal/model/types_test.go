package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const me = "aaaaaaaa-0000-0000-0000-000000000001"

func usdc(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func TestTransactionDirection(t *testing.T) {
	received := Transaction{
		ID: "tx-1", FromAgentID: "other", ToAgentID: me,
		FromAgent:  &Agent{ID: "other", Name: "Builder Bot"},
		AmountUSDC: usdc("12.5"),
	}
	if received.DirectionFor(me) != DirectionReceived {
		t.Fatalf("expected Received, got %s", received.DirectionFor(me))
	}
	if got := received.DisplayAmount(me); got != "+12.50 USDC" {
		t.Fatalf("unexpected display amount %q", got)
	}
	if cp := received.Counterparty(me); cp == nil || cp.Name != "Builder Bot" {
		t.Fatalf("unexpected counterparty %#v", cp)
	}

	sent := Transaction{ID: "tx-2", FromAgentID: me, ToAgentID: "other", AmountUSDC: usdc("3")}
	if sent.DirectionFor(me) != DirectionSent {
		t.Fatalf("expected Sent, got %s", sent.DirectionFor(me))
	}
	if got := sent.DisplayAmount(me); got != "-3.00 USDC" {
		t.Fatalf("unexpected display amount %q", got)
	}

	// Neither side matching is still reported as sent.
	third := Transaction{ID: "tx-3", FromAgentID: "x", ToAgentID: "y"}
	if third.DirectionFor(me) != DirectionSent {
		t.Fatal("expected unrelated transaction to classify as Sent")
	}
}

func TestTruncateTransactions(t *testing.T) {
	txs := []Transaction{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	if got := TruncateTransactions(txs, 2); len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected truncation: %#v", got)
	}
	for _, limit := range []int{3, 4, 100, 0, -1} {
		got := TruncateTransactions(txs, limit)
		if len(got) != 3 || got[0].ID != "a" || got[2].ID != "c" {
			t.Fatalf("limit %d should return the full list, got %#v", limit, got)
		}
	}
}

func TestDecodeTransactionAmount(t *testing.T) {
	var h History
	body := `{"transactions":[{"id":"t","from_agent_id":"a","to_agent_id":"b","amount_usdc":25.1,"created_at":"2026-01-02T03:04:05Z"}]}`
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if h.Transactions[0].AmountUSDC.Decimal.StringFixed(2) != "25.10" {
		t.Fatalf("unexpected amount %s", h.Transactions[0].AmountUSDC.Decimal)
	}
}

func TestValidateFailsClosed(t *testing.T) {
	if err := (History{}).Validate(); err == nil {
		t.Fatal("expected missing transactions to fail")
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	neg := History{Transactions: []Transaction{{ID: "t", FromAgentID: "a", ToAgentID: "b", AmountUSDC: usdc("-1"), CreatedAt: created}}}
	if err := neg.Validate(); err == nil {
		t.Fatal("expected negative amount to fail")
	}
	noAmount := History{Transactions: []Transaction{{ID: "t", FromAgentID: "a", ToAgentID: "b", CreatedAt: created}}}
	if err := noAmount.Validate(); err == nil {
		t.Fatal("expected transaction without amount to fail")
	}
	noDate := History{Transactions: []Transaction{{ID: "t", FromAgentID: "a", ToAgentID: "b", AmountUSDC: usdc("1")}}}
	if err := noDate.Validate(); err == nil {
		t.Fatal("expected transaction without created_at to fail")
	}
	if err := (Job{ID: "j", Title: "t"}).Validate(); err == nil {
		t.Fatal("expected job without status to fail")
	}
	if err := (HireResult{JobID: "j", Status: "in_progress"}).Validate(); err == nil {
		t.Fatal("expected hire result without agent id to fail")
	}
	if err := (MessagePage{}).Validate(); err == nil {
		t.Fatal("expected page without messages to fail")
	}
}

func TestDecodeTransactionRejectsAbsentAmount(t *testing.T) {
	bodies := map[string]string{
		"missing": `{"transactions":[{"id":"t","from_agent_id":"a","to_agent_id":"b","created_at":"2026-01-02T03:04:05Z"}]}`,
		"null":    `{"transactions":[{"id":"t","from_agent_id":"a","to_agent_id":"b","amount_usdc":null,"created_at":"2026-01-02T03:04:05Z"}]}`,
		"no date": `{"transactions":[{"id":"t","from_agent_id":"a","to_agent_id":"b","amount_usdc":"1"}]}`,
	}
	for name, body := range bodies {
		var h History
		if err := json.Unmarshal([]byte(body), &h); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if err := h.Validate(); err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
	}

	// Zero is a real amount, distinct from an absent one.
	var h History
	body := `{"transactions":[{"id":"t","from_agent_id":"a","to_agent_id":"b","amount_usdc":"0","created_at":"2026-01-02T03:04:05Z"}]}`
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("expected zero amount to be accepted: %v", err)
	}
}

func TestMessagePageTotal(t *testing.T) {
	page := MessagePage{Messages: []Message{{ID: "1"}, {ID: "2"}}}
	if page.Total() != 2 {
		t.Fatalf("expected fallback to page length, got %d", page.Total())
	}
	total := 40
	page.Pagination.Total = &total
	if page.Total() != 40 {
		t.Fatalf("expected server total, got %d", page.Total())
	}
}
