package collect

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/period"
)

type stubSource struct {
	data map[string][]aggregate.Record
	errs map[string]error
}

func (s *stubSource) Get(_ context.Context, resource string, _ url.Values) ([]aggregate.Record, error) {
	if err, ok := s.errs[resource]; ok {
		return nil, err
	}
	return s.data[resource], nil
}

func juneQuery() Query {
	return Query{
		Period: period.Monthly,
		Window: period.Window{
			Start: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestCollectAssetsOnlyCompletedProjectsContribute(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourceProjects: {
			{"status": "completed", "endTime": "2024-06-15", "revenue": 2000},
			{"status": "in_progress", "endTime": "2024-06-15", "revenue": 2000},
			{"status": "completed", "endTime": "2024-07-15", "revenue": 999},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectAssets(context.Background(), juneQuery())
	require.NoError(t, err)
	require.Equal(t, 2000.0, costs.RentalEquipmentRevenue)
}

func TestCollectAssetsDepreciation(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourceAssets: {
			// 36000 over 12 months from June 1: the 30 June days are a full
			// amortized month of the 360-day span.
			{"purchaseCost": 36000, "usefulLifeMonths": 12, "purchaseDate": "2024-06-01"},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectAssets(context.Background(), juneQuery())
	require.NoError(t, err)
	require.InDelta(t, 3000.0, costs.Depreciation, 1e-9)
}

func TestCollectOperationsSumsComponents(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourceProjects: {
			{
				"startTime": "2024-06-10", "fuelCost": "100", "vehicleCost": 200,
				"overtimeCost": 50, "tripAllowance": 25, "foodAllowance": 25,
			},
			{"startTime": "2024-05-10", "fuelCost": 9999},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectOperations(context.Background(), juneQuery())
	require.NoError(t, err)
	require.Equal(t, 400.0, costs.Total)
	require.Equal(t, 100.0, costs.Fuel)
	require.Equal(t, costs.Total, costs.Fuel+costs.Vehicle+costs.Overtime+costs.TripAllowance+costs.FoodAllowance)
}

func TestCollectAdminRules(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourceFacilities: {
			// Rent counts regardless of any dates; no deposit flag, so the
			// deposit field is ignored.
			{"monthlyRent": 5000, "securityDeposit": 60000},
			// Deposit amortized over 12 months from June 1: one 30-day month.
			{
				"monthlyRent": 0, "hasSecurityDeposit": "Yes", "securityDeposit": 12000,
				"amortizationPeriodMonths": 12, "leaseStartDate": "2024-06-01",
			},
		},
		ResourceLegalCases: {
			{
				"filingDate": "2024-06-20", "actualCost": 100, "contractAmount": "200",
				"actualLegalRepCost": 50, "otherCosts": 25, "totalActualCost": 125,
			},
			{"filingDate": "2024-05-20", "actualCost": 7777},
		},
		ResourceCorrespondence: {
			// Amortized: 1200 over 12 months from June 1, 30 overlapping days.
			{"totalCost": 1200, "amortization": 12, "submissionDate": "2024-06-01"},
			// Not amortized: full fee on the submission date.
			{"totalCost": 300, "submissionDate": "2024-06-10"},
			// Not amortized and outside the window.
			{"totalCost": 400, "submissionDate": "2024-07-10"},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectAdmin(context.Background(), juneQuery())
	require.NoError(t, err)
	require.InDelta(t, 5000+12000*30.0/360.0, costs.Facility, 1e-9)
	require.Equal(t, 500.0, costs.Legal)
	require.InDelta(t, 1200*30.0/360.0+300, costs.Correspondence, 1e-9)
}

func TestCollectHSEZeroWithoutOverlap(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourceTraining: {
			// Span ended before the window opens.
			{"totalCost": 600, "amortizationPeriodMonths": 1, "startDate": "2024-01-01"},
			// No amortization term: the generic allocator yields 0.
			{"totalCost": 500, "startDate": "2024-06-10"},
			// Overlapping span contributes pro rata.
			{"totalCost": 900, "amortizationPeriodMonths": 3, "startDate": "2024-06-01"},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectHSE(context.Background(), juneQuery())
	require.NoError(t, err)
	require.InDelta(t, 900*30.0/90.0, costs.TrainingCosts, 1e-9)
}

func TestCollectAllSettlesPartialFailures(t *testing.T) {
	src := &stubSource{
		data: map[string][]aggregate.Record{
			ResourceInvoices: {
				{"invoiceDate": "2024-06-05", "totalAmount": 150, "status": "paid"},
				{"invoiceDate": "2024-06-06", "totalAmount": 50, "status": "unpaid"},
			},
			ResourceFuelLogs: {
				{"logDate": "2024-06-07", "totalCost": 80},
			},
		},
		errs: map[string]error{
			ResourcePayroll:  errors.New("upstream 502"),
			ResourceProjects: errors.New("upstream timeout"),
		},
	}
	svc := NewService(src, nil)

	set := svc.CollectAll(context.Background(), juneQuery())

	require.True(t, set.Failed(ModuleHR))
	require.True(t, set.Failed(ModuleAssets))
	require.True(t, set.Failed(ModuleOperations))
	require.Zero(t, set.HR)
	require.Zero(t, set.Assets)

	require.False(t, set.Failed(ModuleInvoices))
	require.Equal(t, 200.0, set.Invoices.Revenue)
	require.Equal(t, 50.0, set.Invoices.Receivables)
	require.Equal(t, 80.0, set.Fuel.Total)
}

func TestQueryValuesIncludeCustomBounds(t *testing.T) {
	q := juneQuery()
	v := q.Values()
	require.Equal(t, "monthly", v.Get("period"))
	require.Empty(t, v.Get("startDate"))

	q.Custom = true
	v = q.Values()
	require.Equal(t, "2024-06-01", v.Get("startDate"))
	require.Equal(t, "2024-07-01", v.Get("endDate"))
}

func TestCollectHRHonoursWindow(t *testing.T) {
	src := &stubSource{data: map[string][]aggregate.Record{
		ResourcePayroll: {
			{"paymentDate": "2024-06-28", "netSalary": "3200.50"},
			{"paymentDate": "2024-07-28", "netSalary": 9999},
		},
		ResourceBusinessTrips: {
			{"startDate": "2024-06-02", "totalCost": 450},
		},
	}}
	svc := NewService(src, nil)

	costs, err := svc.CollectHR(context.Background(), juneQuery())
	require.NoError(t, err)
	require.True(t, math.Abs(costs.StaffCosts-3200.50) < 1e-9)
	require.Equal(t, 450.0, costs.BusinessTripExpenses)
}
