package finance

// ProductionTrigger is the production side effect owed when an invoice changes status
type ProductionTrigger int

const (
	TriggerNone ProductionTrigger = iota
	TriggerDepositPaid
	TriggerFinalPaid
)

// String returns a readable name for logs
func (t ProductionTrigger) String() string {
	switch t {
	case TriggerDepositPaid:
		return "deposit_paid"
	case TriggerFinalPaid:
		return "final_paid"
	default:
		return "none"
	}
}

// ResolveProductionTrigger maps an invoice status transition to the production
// side effect it requires. Only the transition into paid fires anything.
func ResolveProductionTrigger(invoiceType InvoiceType, previous, current InvoiceStatus) ProductionTrigger {
	if previous == current {
		return TriggerNone
	}
	switch {
	case invoiceType == InvoiceTypeDeposit && current == InvoiceStatusPaid:
		return TriggerDepositPaid
	case invoiceType == InvoiceTypeFinal && current == InvoiceStatusPaid:
		return TriggerFinalPaid
	default:
		return TriggerNone
	}
}
