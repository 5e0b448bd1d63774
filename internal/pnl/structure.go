// Package pnl composes collector output into the fixed vertical profit &
// loss statement and merges manual overrides into it.
package pnl

import (
	"fmt"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

// ItemType classifies a line item.
type ItemType string

// Line item classifications.
const (
	ItemRevenue ItemType = "revenue"
	ItemExpense ItemType = "expense"
	ItemSummary ItemType = "summary"
)

// SectionType identifies one of the five fixed statement sections.
type SectionType string

// Statement section types, in build order.
const (
	SectionRevenue   SectionType = "revenue"
	SectionExpenses  SectionType = "expenses"
	SectionOther     SectionType = "other"
	SectionEBITDA    SectionType = "ebitda"
	SectionNetProfit SectionType = "net_profit"
)

// LineItem is one row of the statement. A parent item's Amount always
// equals the sum of its SubItems.
type LineItem struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Module      string     `json:"module"`
	Type        ItemType   `json:"type"`
	IsParent    bool       `json:"isParent,omitempty"`
	SubItems    []LineItem `json:"subItems,omitempty"`
}

// Section groups line items. For revenue, expenses, and other sections the
// subtotal is the sum of item amounts; for ebitda and net_profit it is a
// formula result, deliberately not a sum of the displayed items.
type Section struct {
	ID       string      `json:"id"`
	Category string      `json:"category"`
	Type     SectionType `json:"type"`
	Subtotal float64     `json:"subtotal"`
	Items    []LineItem  `json:"items"`
}

// Summary carries the top-level metrics derived from section subtotals.
type Summary struct {
	Revenue           float64 `json:"revenue"`
	CostOfSales       float64 `json:"costOfSales"`
	GrossProfit       float64 `json:"grossProfit"`
	GrossMargin       string  `json:"grossMargin"`
	OperatingExpenses float64 `json:"operatingExpenses"`
	OperatingProfit   float64 `json:"operatingProfit"`
	OperatingMargin   string  `json:"operatingMargin"`
	NetProfit         float64 `json:"netProfit"`
	NetMargin         string  `json:"netMargin"`
	EBITDA            float64 `json:"ebitda"`
}

// Breakdown exposes the raw per-module contributions behind the statement.
type Breakdown struct {
	ModuleContributions map[string]any `json:"moduleContributions"`
	FailedModules       []string       `json:"failedModules,omitempty"`
}

// Structure is the complete statement for one reporting period. It is
// constructed fresh per build; ApplyManualEntries mutates it in place and
// callers must not run two integrations concurrently against one instance.
type Structure struct {
	Period    period.Period `json:"period"`
	Summary   Summary       `json:"summary"`
	Table     []Section     `json:"table"`
	Breakdown Breakdown     `json:"breakdown"`
}

// ManualEntry overrides one line item amount by taxonomy id.
type ManualEntry struct {
	ItemID string  `json:"itemId" validate:"required"`
	Amount float64 `json:"amount"`
}

// section returns the first section of the given type, or nil.
func (st *Structure) section(t SectionType) *Section {
	for i := range st.Table {
		if st.Table[i].Type == t {
			return &st.Table[i]
		}
	}
	return nil
}

// Item looks up a line item by id across all sections, descending into
// parent sub-items.
func (st *Structure) Item(id string) *LineItem {
	for i := range st.Table {
		if item := findItem(st.Table[i].Items, id); item != nil {
			return item
		}
	}
	return nil
}

func findItem(items []LineItem, id string) *LineItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
		if items[i].IsParent {
			if sub := findItem(items[i].SubItems, id); sub != nil {
				return sub
			}
		}
	}
	return nil
}

// formatMargin renders value as a percentage of revenue with one decimal.
// Zero revenue yields "0.0%" rather than dividing by zero.
func formatMargin(value, revenue float64) string {
	if revenue == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", value/revenue*100)
}
