// Package collect gathers module records from the upstream data boundary
// and reduces them into the typed cost figures consumed by the P&L builder.
package collect

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/amortize"
)

// Service runs the per-module collectors against a DataSource.
type Service struct {
	src    DataSource
	logger *slog.Logger
}

// NewService wires the collector service.
func NewService(src DataSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, logger: logger}
}

// CollectAll fans out every module collector concurrently and settles all
// of them. Individual failures are recorded on the Set and logged; they
// never abort the pass.
func (s *Service) CollectAll(ctx context.Context, q Query) Set {
	set := Set{Errors: map[string]error{}}
	if s == nil || s.src == nil {
		return set
	}

	var mu sync.Mutex
	fail := func(module string, err error) {
		s.logger.Warn("module collection failed",
			slog.String("module", module),
			slog.Any("error", err))
		mu.Lock()
		set.Errors[module] = err
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		costs, err := s.CollectHR(ctx, q)
		if err != nil {
			fail(ModuleHR, err)
			return nil
		}
		set.HR = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectAssets(ctx, q)
		if err != nil {
			fail(ModuleAssets, err)
			return nil
		}
		set.Assets = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectOperations(ctx, q)
		if err != nil {
			fail(ModuleOperations, err)
			return nil
		}
		set.Operations = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectMaintenance(ctx, q)
		if err != nil {
			fail(ModuleMaintenance, err)
			return nil
		}
		set.Maintenance = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectProcurement(ctx, q)
		if err != nil {
			fail(ModuleProcurement, err)
			return nil
		}
		set.Procurement = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectHSE(ctx, q)
		if err != nil {
			fail(ModuleHSE, err)
			return nil
		}
		set.HSE = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectAdmin(ctx, q)
		if err != nil {
			fail(ModuleAdmin, err)
			return nil
		}
		set.Admin = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectInventory(ctx, q)
		if err != nil {
			fail(ModuleInventory, err)
			return nil
		}
		set.Inventory = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectSales(ctx, q)
		if err != nil {
			fail(ModuleSales, err)
			return nil
		}
		set.Sales = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectInvoices(ctx, q)
		if err != nil {
			fail(ModuleInvoices, err)
			return nil
		}
		set.Invoices = costs
		return nil
	})
	g.Go(func() error {
		costs, err := s.CollectFuel(ctx, q)
		if err != nil {
			fail(ModuleFuel, err)
			return nil
		}
		set.Fuel = costs
		return nil
	})
	_ = g.Wait()
	return set
}

// CollectHR sums payroll and business trip spend inside the window.
func (s *Service) CollectHR(ctx context.Context, q Query) (HRCosts, error) {
	payroll, err := s.src.Get(ctx, ResourcePayroll, q.Values())
	if err != nil {
		return HRCosts{}, err
	}
	trips, err := s.src.Get(ctx, ResourceBusinessTrips, q.Values())
	if err != nil {
		return HRCosts{}, err
	}
	return HRCosts{
		StaffCosts:           sumInWindow(payroll, "paymentDate", "netSalary", q),
		BusinessTripExpenses: sumInWindow(trips, "startDate", "totalCost", q),
	}, nil
}

// CollectAssets derives rental revenue from completed projects and
// straight-line depreciation from the asset register. Only projects with
// status "completed" contribute revenue, keyed by their end time.
func (s *Service) CollectAssets(ctx context.Context, q Query) (AssetsCosts, error) {
	projects, err := s.src.Get(ctx, ResourceProjects, q.Values())
	if err != nil {
		return AssetsCosts{}, err
	}
	assets, err := s.src.Get(ctx, ResourceAssets, q.Values())
	if err != nil {
		return AssetsCosts{}, err
	}

	var costs AssetsCosts
	for _, p := range projects {
		if p.String("status") != "completed" {
			continue
		}
		end, ok := p.Date("endTime")
		if !ok || !q.Window.Contains(end) {
			continue
		}
		costs.RentalEquipmentRevenue += p.Number("revenue")
	}
	for _, a := range assets {
		if purchased, ok := a.Date("purchaseDate"); ok {
			costs.Depreciation += amortize.Portion(
				a.Number("purchaseCost"), a.Number("usefulLifeMonths"), purchased, q.Window)
		}
		if serviced, ok := a.Date("operatingCostDate"); ok && q.Window.Contains(serviced) {
			costs.RentalEquipmentCosts += a.Number("operatingCost")
		}
	}
	return costs, nil
}

// CollectOperations sums the five operational cost components from project
// records started inside the window. Total is always their plain sum.
func (s *Service) CollectOperations(ctx context.Context, q Query) (OperationsCosts, error) {
	projects, err := s.src.Get(ctx, ResourceProjects, q.Values())
	if err != nil {
		return OperationsCosts{}, err
	}
	var costs OperationsCosts
	for _, p := range projects {
		start, ok := p.Date("startTime")
		if !ok || !q.Window.Contains(start) {
			continue
		}
		costs.Fuel += p.Number("fuelCost")
		costs.Vehicle += p.Number("vehicleCost")
		costs.Overtime += p.Number("overtimeCost")
		costs.TripAllowance += p.Number("tripAllowance")
		costs.FoodAllowance += p.Number("foodAllowance")
	}
	costs.Total = costs.Fuel + costs.Vehicle + costs.Overtime + costs.TripAllowance + costs.FoodAllowance
	return costs, nil
}

// CollectMaintenance sums maintenance work order costs by service date.
func (s *Service) CollectMaintenance(ctx context.Context, q Query) (MaintenanceCosts, error) {
	records, err := s.src.Get(ctx, ResourceMaintenance, q.Values())
	if err != nil {
		return MaintenanceCosts{}, err
	}
	return MaintenanceCosts{Total: sumInWindow(records, "serviceDate", "cost", q)}, nil
}

// CollectProcurement sums purchase request totals by request date.
func (s *Service) CollectProcurement(ctx context.Context, q Query) (ProcurementCosts, error) {
	records, err := s.src.Get(ctx, ResourcePurchases, q.Values())
	if err != nil {
		return ProcurementCosts{}, err
	}
	return ProcurementCosts{Total: sumInWindow(records, "requestDate", "totalAmount", q)}, nil
}

// CollectHSE amortizes training costs across the window. Training without
// an amortization term contributes nothing: the generic allocator yields 0
// when there is no span to overlap.
func (s *Service) CollectHSE(ctx context.Context, q Query) (HSECosts, error) {
	records, err := s.src.Get(ctx, ResourceTraining, q.Values())
	if err != nil {
		return HSECosts{}, err
	}
	var costs HSECosts
	for _, rec := range records {
		start, ok := rec.Date("startDate")
		if !ok {
			continue
		}
		costs.TrainingCosts += amortize.Portion(
			rec.Number("totalCost"), rec.Number("amortizationPeriodMonths"), start, q.Window)
	}
	return costs, nil
}

// CollectAdmin gathers facility, legal, and correspondence spend.
//
// Monthly rent is an ongoing charge and is included for every facility
// regardless of creation date; a flagged security deposit is amortized
// separately. Legal cases count only when filed inside the window, summing
// their five optional cost fields. Correspondence fees amortize when a term
// is present, otherwise they attach to the submission date alone.
func (s *Service) CollectAdmin(ctx context.Context, q Query) (AdminCosts, error) {
	facilities, err := s.src.Get(ctx, ResourceFacilities, q.Values())
	if err != nil {
		return AdminCosts{}, err
	}
	cases, err := s.src.Get(ctx, ResourceLegalCases, q.Values())
	if err != nil {
		return AdminCosts{}, err
	}
	letters, err := s.src.Get(ctx, ResourceCorrespondence, q.Values())
	if err != nil {
		return AdminCosts{}, err
	}

	var costs AdminCosts
	for _, f := range facilities {
		costs.Facility += f.Number("monthlyRent")
		if f.String("hasSecurityDeposit") != "Yes" {
			continue
		}
		if leased, ok := f.Date("leaseStartDate"); ok {
			costs.Facility += amortize.Portion(
				f.Number("securityDeposit"), f.Number("amortizationPeriodMonths"), leased, q.Window)
		}
	}
	for _, c := range cases {
		filed, ok := c.Date("filingDate")
		if !ok || !q.Window.Contains(filed) {
			continue
		}
		costs.Legal += c.Number("actualCost") +
			c.Number("contractAmount") +
			c.Number("actualLegalRepCost") +
			c.Number("otherCosts") +
			c.Number("totalActualCost")
	}
	for _, l := range letters {
		submitted, ok := l.Date("submissionDate")
		if !ok {
			continue
		}
		if months := l.Number("amortization"); months > 0 {
			costs.Correspondence += amortize.Portion(l.Number("totalCost"), months, submitted, q.Window)
		} else {
			costs.Correspondence += amortize.EventPortion(l.Number("totalCost"), submitted, q.Window)
		}
	}
	return costs, nil
}

// CollectInventory sums stock consumption value inside the window.
func (s *Service) CollectInventory(ctx context.Context, q Query) (InventoryCosts, error) {
	records, err := s.src.Get(ctx, ResourceInventoryItems, q.Values())
	if err != nil {
		return InventoryCosts{}, err
	}
	return InventoryCosts{Consumed: sumInWindow(records, "consumedAt", "consumptionValue", q)}, nil
}

// CollectSales sums quotation totals by quotation date.
func (s *Service) CollectSales(ctx context.Context, q Query) (SalesRevenue, error) {
	records, err := s.src.Get(ctx, ResourceQuotations, q.Values())
	if err != nil {
		return SalesRevenue{}, err
	}
	return SalesRevenue{Quotations: sumInWindow(records, "quotationDate", "totalAmount", q)}, nil
}

// CollectInvoices sums invoiced revenue inside the window and the open
// receivable balance across unpaid invoices.
func (s *Service) CollectInvoices(ctx context.Context, q Query) (InvoiceFigures, error) {
	records, err := s.src.Get(ctx, ResourceInvoices, q.Values())
	if err != nil {
		return InvoiceFigures{}, err
	}
	var figures InvoiceFigures
	for _, rec := range records {
		issued, ok := rec.Date("invoiceDate")
		if ok && q.Window.Contains(issued) {
			figures.Revenue += rec.Number("totalAmount")
		}
		if rec.String("status") != "paid" {
			figures.Receivables += rec.Number("totalAmount")
		}
	}
	return figures, nil
}

// CollectFuel sums fuel log spend by log date.
func (s *Service) CollectFuel(ctx context.Context, q Query) (FuelCosts, error) {
	records, err := s.src.Get(ctx, ResourceFuelLogs, q.Values())
	if err != nil {
		return FuelCosts{}, err
	}
	return FuelCosts{Total: sumInWindow(records, "logDate", "totalCost", q)}, nil
}

func sumInWindow(records []aggregate.Record, dateField, amountField string, q Query) float64 {
	var total float64
	for _, rec := range records {
		when, ok := rec.Date(dateField)
		if !ok || !q.Window.Contains(when) {
			continue
		}
		total += rec.Number(amountField)
	}
	return total
}
