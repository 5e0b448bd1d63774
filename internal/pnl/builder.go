package pnl

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/collect"
	"github.com/meridian-erp/meridian-pnl/internal/period"
)

// Service builds statements from live collector data.
type Service struct {
	collectors *collect.Service
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the statement builder.
func NewService(collectors *collect.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collectors: collectors,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the reference clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BuildStatement resolves the reporting window, fans out all collectors,
// and composes the statement. It never fails: when the data boundary is
// unreachable the result is the fully shaped all-zero statement.
func (s *Service) BuildStatement(ctx context.Context, p period.Period, custom *period.Window) *Structure {
	if s == nil || s.collectors == nil {
		return Build(collect.Set{}, p)
	}
	q := collect.Query{
		Period: p,
		Window: period.Resolve(p, s.now(), custom),
		Custom: custom != nil,
	}
	return Build(s.collectors.CollectAll(ctx, q), p)
}

// Build composes the five fixed statement sections from settled collector
// output and derives the summary. Failed modules are listed on the
// breakdown; their figures stay zero.
func Build(set collect.Set, p period.Period) *Structure {
	fuel := set.Operations.Fuel + set.Fuel.Total

	operationSubs := []LineItem{
		{ID: ItemOperationBaseCost, Description: "Base operation cost", Amount: set.Operations.Vehicle, Module: collect.ModuleOperations, Type: ItemExpense},
		{ID: ItemOvertimeCost, Description: "Overtime", Amount: set.Operations.Overtime, Module: collect.ModuleOperations, Type: ItemExpense},
		{ID: ItemTripAllowance, Description: "Trip allowance", Amount: set.Operations.TripAllowance, Module: collect.ModuleOperations, Type: ItemExpense},
		{ID: ItemFoodAllowance, Description: "Food allowance", Amount: set.Operations.FoodAllowance, Module: collect.ModuleOperations, Type: ItemExpense},
		{ID: ItemFuelCost, Description: "Fuel", Amount: fuel, Module: collect.ModuleFuel, Type: ItemExpense},
		{ID: ItemMaintenanceCost, Description: "Maintenance", Amount: set.Maintenance.Total, Module: collect.ModuleMaintenance, Type: ItemExpense},
	}

	st := &Structure{
		Period: p,
		Table: []Section{
			{
				ID: "revenue", Category: "Revenue", Type: SectionRevenue,
				Items: []LineItem{
					{ID: ItemRentalEquipmentRevenue, Description: "Rental equipment revenue", Amount: set.Assets.RentalEquipmentRevenue, Module: collect.ModuleAssets, Type: ItemRevenue},
					{ID: ItemDSRevenue, Description: "DS revenue", Module: ModuleManual, Type: ItemRevenue},
					{ID: ItemSubCompaniesRevenue, Description: "Sub-companies revenue", Module: ModuleManual, Type: ItemRevenue},
					{ID: ItemOtherRevenue, Description: "Other revenue", Module: ModuleManual, Type: ItemRevenue},
					{ID: ItemProvisionEndService, Description: "End of service provision reversal", Module: ModuleManual, Type: ItemRevenue},
					{ID: ItemProvisionImpairment, Description: "Impairment provision reversal", Module: ModuleManual, Type: ItemRevenue},
					{ID: ItemRebate, Description: "Rebate", Module: ModuleManual, Type: ItemRevenue},
				},
			},
			{
				ID: "expenses", Category: "Expenses", Type: SectionExpenses,
				Items: []LineItem{
					{ID: ItemOperationCost, Description: "Operation cost", Module: collect.ModuleOperations, Type: ItemExpense, IsParent: true, SubItems: operationSubs},
					{ID: ItemStaffCost, Description: "Staff cost", Amount: set.HR.StaffCosts, Module: collect.ModuleHR, Type: ItemExpense},
					{ID: ItemBusinessTripCost, Description: "Business trip expenses", Amount: set.HR.BusinessTripExpenses, Module: collect.ModuleHR, Type: ItemExpense},
					{ID: ItemAdminFacilityCost, Description: "Facility cost", Amount: set.Admin.Facility, Module: collect.ModuleAdmin, Type: ItemExpense},
					{ID: ItemAdminLegalCost, Description: "Legal cost", Amount: set.Admin.Legal, Module: collect.ModuleAdmin, Type: ItemExpense},
					{ID: ItemAdminCorrespondence, Description: "Government correspondence cost", Amount: set.Admin.Correspondence, Module: collect.ModuleAdmin, Type: ItemExpense},
					{ID: ItemTrainingCost, Description: "HSE training cost", Amount: set.HSE.TrainingCosts, Module: collect.ModuleHSE, Type: ItemExpense},
					{ID: ItemProvisionCreditLoss, Description: "Provision for credit loss", Module: ModuleManual, Type: ItemExpense},
					{ID: ItemRentalEquipmentCost, Description: "Rental equipment cost", Module: ModuleManual, Type: ItemExpense},
					{ID: ItemDSCost, Description: "DS cost", Module: ModuleManual, Type: ItemExpense},
					{ID: ItemServiceAgreementCost, Description: "Service agreement cost", Module: ModuleManual, Type: ItemExpense},
				},
			},
			{
				ID: "other_items", Category: "Other Items", Type: SectionOther,
				Items: []LineItem{
					{ID: ItemGainSellingProducts, Description: "Gain on selling products", Module: ModuleManual, Type: ItemRevenue},
				},
			},
			{
				ID: "ebitda", Category: "EBITDA", Type: SectionEBITDA,
				// Informational rows only; the subtotal is formula-based and
				// never the sum of these items.
				Items: []LineItem{
					{ID: ItemFinanceCosts, Description: "Finance costs", Module: ModuleManual, Type: ItemExpense},
					{ID: ItemDepreciation, Description: "Depreciation", Amount: set.Assets.Depreciation, Module: collect.ModuleAssets, Type: ItemExpense},
				},
			},
			{
				ID: "net_profit", Category: "Net Profit", Type: SectionNetProfit,
				Items: []LineItem{},
			},
		},
		Breakdown: buildBreakdown(set),
	}
	Recompute(st)
	return st
}

func buildBreakdown(set collect.Set) Breakdown {
	failed := make([]string, 0, len(set.Errors))
	for module := range set.Errors {
		failed = append(failed, module)
	}
	sort.Strings(failed)
	return Breakdown{
		ModuleContributions: map[string]any{
			collect.ModuleHR:          set.HR,
			collect.ModuleAssets:      set.Assets,
			collect.ModuleOperations:  set.Operations,
			collect.ModuleMaintenance: set.Maintenance,
			collect.ModuleProcurement: set.Procurement,
			collect.ModuleHSE:         set.HSE,
			collect.ModuleAdmin:       set.Admin,
			collect.ModuleInventory:   set.Inventory,
			collect.ModuleSales:       set.Sales,
			collect.ModuleInvoices:    set.Invoices,
			collect.ModuleFuel:        set.Fuel,
		},
		FailedModules: failed,
	}
}

// Recompute rebuilds every derived figure bottom-up: parent item amounts,
// the summed section subtotals, the EBITDA and net profit formulas, and the
// summary. Deterministic and idempotent.
func Recompute(st *Structure) {
	for i := range st.Table {
		section := &st.Table[i]
		for j := range section.Items {
			item := &section.Items[j]
			if !item.IsParent {
				continue
			}
			var sum float64
			for _, sub := range item.SubItems {
				sum += sub.Amount
			}
			item.Amount = sum
		}
		switch section.Type {
		case SectionRevenue, SectionExpenses, SectionOther:
			var subtotal float64
			for _, item := range section.Items {
				subtotal += item.Amount
			}
			section.Subtotal = subtotal
		}
	}

	revenue := st.section(SectionRevenue).Subtotal
	expenses := st.section(SectionExpenses).Subtotal
	other := st.section(SectionOther).Subtotal

	var financeCosts, depreciation float64
	ebitdaSection := st.section(SectionEBITDA)
	if item := findItem(ebitdaSection.Items, ItemFinanceCosts); item != nil {
		financeCosts = item.Amount
	}
	if item := findItem(ebitdaSection.Items, ItemDepreciation); item != nil {
		depreciation = item.Amount
	}

	ebitda := revenue + other - expenses - financeCosts
	ebitdaSection.Subtotal = ebitda
	netProfit := ebitda - depreciation
	st.section(SectionNetProfit).Subtotal = netProfit

	st.Summary = Summary{
		Revenue:           revenue,
		CostOfSales:       expenses,
		GrossProfit:       revenue - expenses,
		GrossMargin:       formatMargin(revenue-expenses, revenue),
		OperatingExpenses: expenses,
		OperatingProfit:   ebitda,
		OperatingMargin:   formatMargin(ebitda, revenue),
		NetProfit:         netProfit,
		NetMargin:         formatMargin(netProfit, revenue),
		EBITDA:            ebitda,
	}
}
