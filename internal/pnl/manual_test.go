package pnl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

func TestApplyManualEntryRaisesRevenue(t *testing.T) {
	st := Build(sampleSet(), period.Monthly)
	baseRevenue := st.Table[0].Subtotal
	baseGross := st.Summary.GrossProfit

	ApplyManualEntries(st, []ManualEntry{{ItemID: ItemRebate, Amount: 500}}, nil)

	require.Equal(t, 500.0, st.Item(ItemRebate).Amount)
	require.Equal(t, baseRevenue+500, st.Table[0].Subtotal)
	require.Equal(t, baseGross+500, st.Summary.GrossProfit)
}

func TestApplyManualEntriesIsIdempotent(t *testing.T) {
	entries := []ManualEntry{
		{ItemID: ItemRebate, Amount: 500},
		{ItemID: ItemDSCost, Amount: 300},
		{ItemID: ItemFinanceCosts, Amount: 75},
		{ItemID: ItemGainSellingProducts, Amount: 20},
	}

	once := Build(sampleSet(), period.Monthly)
	ApplyManualEntries(once, entries, nil)

	twice := Build(sampleSet(), period.Monthly)
	ApplyManualEntries(twice, entries, nil)
	ApplyManualEntries(twice, entries, nil)

	require.Equal(t, once.Summary, twice.Summary)
	for i := range once.Table {
		require.Equal(t, once.Table[i].Subtotal, twice.Table[i].Subtotal)
	}
}

func TestApplyManualEntryUnknownIDIgnored(t *testing.T) {
	st := Build(sampleSet(), period.Monthly)
	before := st.Summary

	ApplyManualEntries(st, []ManualEntry{{ItemID: "mystery_item", Amount: 9999}}, nil)

	require.Equal(t, before, st.Summary)
}

func TestApplyManualEntryTargetsMappedSection(t *testing.T) {
	st := Build(sampleSet(), period.Monthly)
	baseExpenses := st.Table[1].Subtotal
	baseOther := st.Table[2].Subtotal

	ApplyManualEntries(st, []ManualEntry{
		{ItemID: ItemServiceAgreementCost, Amount: 150},
		{ItemID: ItemGainSellingProducts, Amount: 80},
	}, nil)

	require.Equal(t, baseExpenses+150, st.Table[1].Subtotal)
	require.Equal(t, baseOther+80, st.Table[2].Subtotal)
}

func TestManualTargetMapping(t *testing.T) {
	cases := map[string]SectionType{
		ItemGainSellingProducts:  SectionOther,
		ItemProvisionCreditLoss:  SectionExpenses,
		ItemRentalEquipmentCost:  SectionExpenses,
		ItemDSCost:               SectionExpenses,
		ItemServiceAgreementCost: SectionExpenses,
		ItemProvisionImpairment:  SectionRevenue,
		ItemProvisionEndService:  SectionRevenue,
		ItemRebate:               SectionRevenue,
		ItemSubCompaniesRevenue:  SectionRevenue,
		ItemOtherRevenue:         SectionRevenue,
		ItemDSRevenue:            SectionRevenue,
		ItemFinanceCosts:         SectionEBITDA,
	}
	for id, want := range cases {
		got, ok := ManualTarget(id)
		require.True(t, ok, id)
		require.Equal(t, want, got, id)
	}
	_, ok := ManualTarget(ItemStaffCost)
	require.False(t, ok, "collector-wired ids are not manual targets")
}
