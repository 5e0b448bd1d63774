package pnl

// Line item taxonomy. Every id appearing in a statement or a manual entry
// must be one of these keys; the set is closed.
const (
	ItemRentalEquipmentRevenue = "revenue_rental_equipment"
	ItemDSRevenue              = "ds_revenue"
	ItemSubCompaniesRevenue    = "sub_companies_revenue"
	ItemOtherRevenue           = "other_revenue"
	ItemProvisionEndService    = "provision_end_service"
	ItemProvisionImpairment    = "provision_impairment"
	ItemRebate                 = "rebate"

	ItemOperationCost     = "operation_cost"
	ItemOperationBaseCost = "operation_base_cost"
	ItemOvertimeCost      = "overtime_cost"
	ItemTripAllowance     = "trip_allowance"
	ItemFoodAllowance     = "food_allowance"
	ItemFuelCost          = "fuel_cost"
	ItemMaintenanceCost   = "maintenance_cost"

	ItemStaffCost              = "staff_cost"
	ItemBusinessTripCost       = "business_trip_cost"
	ItemAdminFacilityCost      = "admin_facility_cost"
	ItemAdminLegalCost         = "admin_legal_cost"
	ItemAdminCorrespondence    = "admin_correspondence_cost"
	ItemTrainingCost           = "training_cost"
	ItemProvisionCreditLoss    = "provision_credit_loss"
	ItemRentalEquipmentCost    = "rental_equipment_cost"
	ItemDSCost                 = "ds_cost"
	ItemServiceAgreementCost   = "service_agreement_cost"
	ItemGainSellingProducts    = "gain_selling_products"
	ItemFinanceCosts           = "finance_costs"
	ItemDepreciation           = "depreciation"
)

// ModuleManual tags line items whose amounts only ever come from manual
// entries.
const ModuleManual = "manual"

// manualTargets maps a manual entry id to the section that owns the item.
// Ids absent from this map are rejected as unknown.
var manualTargets = map[string]SectionType{
	ItemGainSellingProducts: SectionOther,

	ItemProvisionCreditLoss:  SectionExpenses,
	ItemRentalEquipmentCost:  SectionExpenses,
	ItemDSCost:               SectionExpenses,
	ItemServiceAgreementCost: SectionExpenses,

	ItemProvisionImpairment:   SectionRevenue,
	ItemProvisionEndService:   SectionRevenue,
	ItemRebate:                SectionRevenue,
	ItemSubCompaniesRevenue:   SectionRevenue,
	ItemOtherRevenue:          SectionRevenue,
	ItemDSRevenue:             SectionRevenue,

	ItemFinanceCosts: SectionEBITDA,
}

// ManualTarget resolves the owning section type for a manual entry id.
func ManualTarget(itemID string) (SectionType, bool) {
	t, ok := manualTargets[itemID]
	return t, ok
}
