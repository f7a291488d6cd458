package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns defaultField if the input is empty or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

var (
	userSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "email": true,
		"full_name": true, "role": true, "last_login_at": true,
	}
	categorySortFields = map[string]bool{
		"created_at": true, "updated_at": true, "name": true, "sort_order": true,
	}
	productSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "name": true,
		"price": true, "stock": true, "sku": true,
	}
	quoteSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "code": true,
		"status": true, "progress": true, "customer_name": true,
	}
	orderSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "code": true,
		"status": true, "total": true, "payment_status": true,
	}
	emailLogSortFields = map[string]bool{
		"created_at": true, "status": true, "template": true, "recipient": true,
	}
)

// page applies whitelisted ordering and offset pagination to query
func page(query *gorm.DB, f shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	f.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, defaultField)
	return query.
		Order(field + " " + ValidateSortOrder(f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize)
}

// likePattern builds a case-insensitive LIKE pattern portable across drivers
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(strings.TrimSpace(s)))
	return "%" + s + "%"
}
