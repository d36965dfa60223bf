package repository

import (
	"context"
	"strings"

	"github.com/straye-as/pipeline-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns the default sort (updatedAt DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds an ORDER BY clause. fieldMap whitelists API field
// names against columns; unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyOwnerScope restricts a lead query to the leads visible to the caller.
// Sales users see their own leads, admins see all. A context without a user
// sees nothing.
func ApplyOwnerScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	return ApplyOwnerScopeWithColumn(ctx, query, "lead_owner")
}

// ApplyOwnerScopeWithColumn is ApplyOwnerScope for a qualified or aliased owner column
func ApplyOwnerScopeWithColumn(ctx context.Context, query *gorm.DB, column string) *gorm.DB {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return query.Where("1 = 0")
	}
	if owner := user.OwnerFilter(); owner != nil {
		return query.Where(column+" = ?", *owner)
	}
	return query
}
