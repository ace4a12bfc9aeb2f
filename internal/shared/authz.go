package shared

// Capabilities checked by rbac middleware.
const (
	PermCustomersRead  = "customers.read"
	PermCustomersWrite = "customers.write"
	PermSuppliersRead  = "suppliers.read"
	PermSuppliersWrite = "suppliers.write"

	PermInventoryRead  = "inventory.read"
	PermInventoryWrite = "inventory.write"

	PermSalesRead  = "sales.read"
	PermSalesWrite = "sales.write"

	PermPaymentsRead  = "payments.read"
	PermPaymentsWrite = "payments.write"

	PermPurchasesRead  = "purchases.read"
	PermPurchasesWrite = "purchases.write"
	PermPurchasesEdit  = "purchases.edit"

	PermAccountsRead   = "accounts.read"
	PermAccountsWrite  = "accounts.write"
	PermAccountsManage = "accounts.manage"

	PermExpensesRead  = "expenses.read"
	PermExpensesWrite = "expenses.write"

	PermReportsView = "reports.view"
	PermAuditView   = "audit.view"

	PermReconcileView = "reconcile.view"
	PermReconcileRun  = "reconcile.run"
)

// StaffScopes lists the capabilities granted to day-to-day staff.
func StaffScopes() []string {
	return []string{
		PermCustomersRead, PermCustomersWrite,
		PermSuppliersRead,
		PermInventoryRead, PermInventoryWrite,
		PermSalesRead, PermSalesWrite,
		PermPaymentsRead, PermPaymentsWrite,
		PermPurchasesRead, PermPurchasesWrite,
		PermAccountsRead, PermAccountsWrite,
		PermExpensesRead, PermExpensesWrite,
	}
}

// AdminScopes lists every capability.
func AdminScopes() []string {
	return append(StaffScopes(),
		PermSuppliersWrite,
		PermPurchasesEdit,
		PermAccountsManage,
		PermReportsView,
		PermAuditView,
		PermReconcileView,
		PermReconcileRun,
	)
}
