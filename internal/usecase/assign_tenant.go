package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/events"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/service"
)

// AssignTenantInput represents the input for assigning a tenant to a cell.
type AssignTenantInput struct {
	CellID      string `json:"cell_id"`
	TenantName  string `json:"tenant_name"`
	TenantTier  string `json:"tenant_tier"`
	TenantEmail string `json:"tenant_email"`
}

// AssignTenantOutput represents the output of a tenant assignment request.
type AssignTenantOutput struct {
	TenantID         string `json:"tenant_id"`
	CellID           string `json:"cell_id"`
	ListenerPriority int    `json:"listener_priority"`
	Status           string `json:"status"`
}

// AssignTenantUseCase places a tenant onto a chosen cell: it reserves a
// capacity slot, resolves the current workload image version, publishes the
// provisioning event and persists the tenant row. Every step after the
// reservation compensates by releasing the slot on failure.
type AssignTenantUseCase struct {
	tenants    repository.TenantStore
	params     repository.ParamStore
	ledger     *service.CapacityLedger
	bus        events.Bus
	imageParam string
}

// NewAssignTenantUseCase creates a new AssignTenantUseCase. imageParam is
// the configuration-store parameter naming the current image version.
func NewAssignTenantUseCase(
	tenants repository.TenantStore,
	params repository.ParamStore,
	ledger *service.CapacityLedger,
	bus events.Bus,
	imageParam string,
) *AssignTenantUseCase {
	return &AssignTenantUseCase{
		tenants:    tenants,
		params:     params,
		ledger:     ledger,
		bus:        bus,
		imageParam: imageParam,
	}
}

// Execute runs the tenant assignment.
func (uc *AssignTenantUseCase) Execute(ctx context.Context, input AssignTenantInput) (*AssignTenantOutput, error) {
	if strings.TrimSpace(input.CellID) == "" {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "cell_id is required")
	}
	name := strings.TrimSpace(input.TenantName)
	if name == "" {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "tenant_name is required")
	}
	if !domain.ValidEmail(input.TenantEmail) {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "tenant_email is not a valid email address").
			WithParams(map[string]interface{}{"tenant_email": input.TenantEmail})
	}

	// Reserve a slot first. This is the only contended step; everything
	// after it is compensated by a release.
	reservation, err := uc.ledger.ReserveSlot(ctx, input.CellID)
	if err != nil {
		return nil, err
	}

	imageVersion, err := uc.params.Get(ctx, uc.imageParam)
	if err != nil {
		uc.compensate(ctx, input.CellID, "image version lookup failed")
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Internal(apperrors.CodeStoreFormat,
				"workload image version parameter is not configured")
		}
		return nil, fmt.Errorf("resolve image version: %w", err)
	}

	tenantID := domain.NewTenantID()
	payload := domain.TenantCreatePayload{
		CellID:           input.CellID,
		TenantID:         tenantID,
		TenantName:       name,
		TenantTier:       input.TenantTier,
		TenantEmail:      input.TenantEmail,
		ListenerPriority: reservation.ListenerPriority,
		ImageVersion:     imageVersion,
	}
	if err := uc.bus.PublishTenantProvision(ctx, payload); err != nil {
		uc.compensate(ctx, input.CellID, "event publication failed")
		return nil, apperrors.Wrap(err, apperrors.CodeStoreAccess,
			"failed to publish tenant provisioning event", 500)
	}

	tenant := &domain.Tenant{
		ID:               tenantID,
		CellID:           input.CellID,
		Name:             name,
		Tier:             input.TenantTier,
		Email:            input.TenantEmail,
		ListenerPriority: reservation.ListenerPriority,
		ImageVersion:     imageVersion,
		Status:           domain.TenantStatusCreating,
	}
	if err := uc.tenants.Insert(ctx, tenant); err != nil {
		// The event is already durable; dispatch proceeds and the completion
		// callback surfaces the missing row. The slot stays reserved because
		// the pipeline is provisioning the tenant regardless.
		return nil, fmt.Errorf("persist tenant %s: %w", tenantID, err)
	}

	logger.Info("tenant assignment requested",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", input.CellID),
		zap.Int("listener_priority", reservation.ListenerPriority),
		zap.String("image_version", imageVersion),
	)

	return &AssignTenantOutput{
		TenantID:         tenantID,
		CellID:           input.CellID,
		ListenerPriority: reservation.ListenerPriority,
		Status:           string(domain.TenantStatusCreating),
	}, nil
}

func (uc *AssignTenantUseCase) compensate(ctx context.Context, cellID, reason string) {
	if err := uc.ledger.ReleaseSlot(ctx, cellID); err != nil {
		logger.Error("compensating slot release failed",
			zap.String("cell_id", cellID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	logger.Warn("assignment aborted, slot released",
		zap.String("cell_id", cellID),
		zap.String("reason", reason),
	)
}
