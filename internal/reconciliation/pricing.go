package reconciliation

import "github.com/angelmondragon/vendorclaims-backend/pkg/enums"

// PricePoint is the plan and billing cycle sold at a given unit amount.
type PricePoint struct {
	Plan         enums.Plan
	BillingCycle enums.BillingCycle
}

// unit amounts are in cents
var priceTable = map[int64]PricePoint{
	2500:  {Plan: enums.PlanStandard, BillingCycle: enums.BillingCycleMonthly},
	25000: {Plan: enums.PlanStandard, BillingCycle: enums.BillingCycleYearly},
	5000:  {Plan: enums.PlanPro, BillingCycle: enums.BillingCycleMonthly},
	50000: {Plan: enums.PlanPro, BillingCycle: enums.BillingCycleYearly},
}

// LookupPrice maps an exact unit amount to its price point. Unknown amounts
// report false.
func LookupPrice(unitAmount int64) (PricePoint, bool) {
	point, ok := priceTable[unitAmount]
	return point, ok
}
