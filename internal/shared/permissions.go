package shared

import (
	"slices"
	"strings"
)

const (
	// AdminRoleName is the role whose holders bypass every permission check.
	AdminRoleName = "Administrador"
	// PermAll is the token stored on the administrator role.
	PermAll = "all"
)

// Known permission tokens offered by the role form.
const (
	PermSalesRead      = "sales_read"
	PermSalesWrite     = "sales_write"
	PermCustomersRead  = "customers_read"
	PermPurchasesRead  = "purchases_read"
	PermPurchasesWrite = "purchases_write"
	PermSuppliersRead  = "suppliers_read"
	PermSuppliersWrite = "suppliers_write"
	PermFinanceRead    = "finance_read"
	PermFinanceWrite   = "finance_write"
	PermReportsRead    = "reports_read"
)

// PermissionOption is one checkbox in the role form.
type PermissionOption struct {
	Token string
	Label string
}

// PermissionGroup clusters options by business area.
type PermissionGroup struct {
	Name    string
	Options []PermissionOption
}

// PermissionCatalog lists the known tokens grouped by area. Tokens outside the
// catalog remain valid; the catalog only drives the UI.
func PermissionCatalog() []PermissionGroup {
	return []PermissionGroup{
		{Name: "Ventas", Options: []PermissionOption{
			{PermSalesRead, "Lectura de ventas"},
			{PermSalesWrite, "Escritura de ventas"},
			{PermCustomersRead, "Gestión de clientes"},
		}},
		{Name: "Compras", Options: []PermissionOption{
			{PermPurchasesRead, "Lectura de compras"},
			{PermPurchasesWrite, "Escritura de compras"},
			{PermSuppliersRead, "Gestión de proveedores"},
			{PermSuppliersWrite, "Escritura de proveedores"},
		}},
		{Name: "Finanzas", Options: []PermissionOption{
			{PermFinanceRead, "Lectura de finanzas"},
			{PermFinanceWrite, "Escritura de finanzas"},
			{PermReportsRead, "Reportes"},
		}},
	}
}

// ParsePermissions splits a stored comma-joined permission string into a
// deduplicated token list, preserving first-seen order.
func ParsePermissions(raw string) []string {
	return NormalizePermissions(strings.Split(raw, ","))
}

// NormalizePermissions trims tokens and drops blanks and duplicates.
func NormalizePermissions(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// JoinPermissions renders tokens in their storage form.
func JoinPermissions(tokens []string) string {
	return strings.Join(NormalizePermissions(tokens), ",")
}
