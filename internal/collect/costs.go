package collect

// Module tags attached to collector output and carried through to P&L line
// items and sync payloads.
const (
	ModuleHR          = "hr"
	ModuleAssets      = "assets"
	ModuleOperations  = "operations"
	ModuleMaintenance = "maintenance"
	ModuleProcurement = "procurement"
	ModuleHSE         = "hse"
	ModuleAdmin       = "admin"
	ModuleInventory   = "inventory"
	ModuleSales       = "sales"
	ModuleInvoices    = "invoices"
	ModuleFuel        = "fuel"
)

// Modules lists every collector module in a stable order.
var Modules = []string{
	ModuleHR, ModuleAssets, ModuleOperations, ModuleMaintenance,
	ModuleProcurement, ModuleHSE, ModuleAdmin, ModuleInventory,
	ModuleSales, ModuleInvoices, ModuleFuel,
}

// HRCosts aggregates payroll and business trip spend.
type HRCosts struct {
	StaffCosts           float64 `json:"staffCosts"`
	BusinessTripExpenses float64 `json:"businessTripExpenses"`
}

// AssetsCosts aggregates rental project revenue and asset charges.
type AssetsCosts struct {
	RentalEquipmentRevenue float64 `json:"rentalEquipmentRevenue"`
	RentalEquipmentCosts   float64 `json:"rentalEquipmentCosts"`
	Depreciation           float64 `json:"depreciation"`
}

// OperationsCosts breaks operational spend into its five components.
// Total is always the sum of the components.
type OperationsCosts struct {
	Fuel          float64 `json:"fuel"`
	Vehicle       float64 `json:"vehicle"`
	Overtime      float64 `json:"overtime"`
	TripAllowance float64 `json:"tripAllowance"`
	FoodAllowance float64 `json:"foodAllowance"`
	Total         float64 `json:"total"`
}

// MaintenanceCosts totals maintenance work orders.
type MaintenanceCosts struct {
	Total float64 `json:"total"`
}

// ProcurementCosts totals purchase requests.
type ProcurementCosts struct {
	Total float64 `json:"total"`
}

// HSECosts carries amortized training spend.
type HSECosts struct {
	TrainingCosts float64 `json:"trainingCosts"`
}

// AdminCosts splits administrative spend by origin.
type AdminCosts struct {
	Facility       float64 `json:"facility"`
	Legal          float64 `json:"legal"`
	Correspondence float64 `json:"correspondence"`
}

// InventoryCosts totals stock consumption.
type InventoryCosts struct {
	Consumed float64 `json:"consumed"`
}

// SalesRevenue totals quotation-sourced revenue.
type SalesRevenue struct {
	Quotations float64 `json:"quotations"`
}

// InvoiceFigures carries invoiced revenue and the open receivable balance.
type InvoiceFigures struct {
	Revenue     float64 `json:"revenue"`
	Receivables float64 `json:"receivables"`
}

// FuelCosts totals fuel log spend.
type FuelCosts struct {
	Total float64 `json:"total"`
}

// Set is the settled output of one collection fan-out. A module that failed
// keeps its zero-value costs and records the failure in Errors; the fan-out
// itself never fails.
type Set struct {
	HR          HRCosts
	Assets      AssetsCosts
	Operations  OperationsCosts
	Maintenance MaintenanceCosts
	Procurement ProcurementCosts
	HSE         HSECosts
	Admin       AdminCosts
	Inventory   InventoryCosts
	Sales       SalesRevenue
	Invoices    InvoiceFigures
	Fuel        FuelCosts

	Errors map[string]error
}

// Failed reports whether the named module's collection failed.
func (s Set) Failed(module string) bool {
	_, ok := s.Errors[module]
	return ok
}
