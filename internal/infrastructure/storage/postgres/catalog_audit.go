package postgres

import (
	"context"

	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/domain"
)

// RegisterCatalogAudit attaches lifecycle hooks to a catalog service so
// definition changes append to sys_audit. Hooks run after commit; a failed
// audit write is logged by the service and never blocks the catalog change.
func RegisterCatalogAudit[T entity.Validatable](svc *domain.CatalogService[T], audit *AuditService, entityType string) {
	svc.Hooks().On(domain.AfterCreate, func(ctx context.Context, e T) error {
		return audit.LogChange(ctx, entityType, entityID(e), AuditActionCreate, StructToMap(e))
	})
	svc.Hooks().On(domain.AfterUpdate, func(ctx context.Context, e T) error {
		return audit.LogChange(ctx, entityType, entityID(e), AuditActionUpdate, StructToMap(e))
	})
	svc.Hooks().On(domain.AfterDelete, func(ctx context.Context, e T) error {
		return audit.LogChange(ctx, entityType, entityID(e), AuditActionDelete, nil)
	})
}

func entityID[T any](e T) id.ID {
	if v, ok := StructToMap(e)["id"].(id.ID); ok {
		return v
	}
	return id.Nil()
}
