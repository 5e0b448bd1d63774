package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/collect"
	"github.com/meridian-erp/meridian-pnl/internal/period"
	"github.com/meridian-erp/meridian-pnl/internal/realtime"
)

// SyncSpec maps one module to the upstream resource and fields its cost
// snapshot is aggregated from.
type SyncSpec struct {
	Module      string
	Resource    string
	DateField   string
	AmountField string
}

// DefaultSyncSpecs covers the modules whose snapshots reduce to a single
// dated amount stream. Modules with composite business rules (assets,
// operations, admin) are only refreshed through the statement path.
var DefaultSyncSpecs = []SyncSpec{
	{Module: collect.ModuleHR, Resource: collect.ResourcePayroll, DateField: "paymentDate", AmountField: "netSalary"},
	{Module: collect.ModuleMaintenance, Resource: collect.ResourceMaintenance, DateField: "serviceDate", AmountField: "cost"},
	{Module: collect.ModuleProcurement, Resource: collect.ResourcePurchases, DateField: "requestDate", AmountField: "totalAmount"},
	{Module: collect.ModuleInventory, Resource: collect.ResourceInventoryItems, DateField: "consumedAt", AmountField: "consumptionValue"},
	{Module: collect.ModuleSales, Resource: collect.ResourceQuotations, DateField: "quotationDate", AmountField: "totalAmount"},
	{Module: collect.ModuleInvoices, Resource: collect.ResourceInvoices, DateField: "invoiceDate", AmountField: "totalAmount"},
	{Module: collect.ModuleFuel, Resource: collect.ResourceFuelLogs, DateField: "logDate", AmountField: "totalCost"},
}

// SnapshotRefreshJob pulls fresh records per module and pushes the
// aggregated buckets through the sync sink.
type SnapshotRefreshJob struct {
	Source collect.DataSource
	Sink   realtime.Sink
	Hub    *realtime.Hub
	Logger *slog.Logger
	Specs  []SyncSpec
	clock  func() time.Time
}

// NewSnapshotRefreshJob wires dependencies for the refresh handler.
func NewSnapshotRefreshJob(source collect.DataSource, sink realtime.Sink, hub *realtime.Hub, logger *slog.Logger) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		Source: source,
		Sink:   sink,
		Hub:    hub,
		Logger: logger,
		Specs:  DefaultSyncSpecs,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes snapshot refresh tasks. Each module is refreshed
// independently; a failing resource is logged and skipped so one upstream
// outage cannot starve the rest.
func (j *SnapshotRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil || j.Sink == nil {
		return errors.New("snapshot refresh: handler not configured")
	}
	var payload SnapshotRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Period == "" {
		payload.Period = string(period.Monthly)
	}

	now := j.clock()
	p := period.Parse(payload.Period)
	query := collect.Query{Period: p, Window: period.Resolve(p, now, nil)}

	var resultErr error
	refreshed := 0
	for _, spec := range j.Specs {
		records, err := j.Source.Get(ctx, spec.Resource, query.Values())
		if err != nil {
			j.logger().Warn("snapshot refresh fetch failed",
				slog.String("module", spec.Module),
				slog.Any("error", err))
			resultErr = errors.Join(resultErr, err)
			continue
		}
		costs := aggregate.PeriodCosts(records, spec.DateField, spec.AmountField, now)
		push := realtime.CostPush{Module: spec.Module, Costs: costs, RecordCount: len(records)}
		if err := j.Sink.PushPeriodCosts(ctx, push); err != nil {
			j.logger().Warn("snapshot refresh push failed",
				slog.String("module", spec.Module),
				slog.Any("error", err))
			resultErr = errors.Join(resultErr, err)
			continue
		}
		if j.Hub != nil {
			j.Hub.TriggerUpdate(spec.Module)
		}
		refreshed++
	}

	j.logger().Info("snapshot refresh complete",
		slog.String("period", string(p)),
		slog.Int("refreshed", refreshed),
		slog.Int("total", len(j.Specs)))
	return resultErr
}

func (j *SnapshotRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
