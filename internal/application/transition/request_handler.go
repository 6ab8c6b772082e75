// Package transition runs asset transitions: it validates transition
// requests and dispatches the configured actions against a batch of assets.
package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"go.uber.org/zap"
)

// Repositories are the read-side lookups the request handler needs
type Repositories struct {
	Assets      asset.AssetRepository
	Warehouses  asset.WarehouseRepository
	Users       identity.UserRepository
	Transitions transition.TransitionRepository
	Templates   transition.ReportTemplateRepository
}

// DispatcherFactory builds the dispatcher for a validated request
type DispatcherFactory func(params DispatcherParams) (*Dispatcher, error)

// NewDispatcherFactory returns a factory building dispatchers that share
// the given collaborators and options
func NewDispatcherFactory(scope TransactionScope, renderer ReportRenderer, tempStoragePath string, opts ...DispatcherOption) DispatcherFactory {
	return func(params DispatcherParams) (*Dispatcher, error) {
		return NewDispatcher(scope, renderer, tempStoragePath, params, opts...)
	}
}

// RequestHandler gates transition requests: it runs the precondition checks
// and, on submit, builds and runs a Dispatcher.
type RequestHandler struct {
	settings      Settings
	repos         Repositories
	newDispatcher DispatcherFactory
	form          *formValidator
	logger        *zap.Logger
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(settings Settings, repos Repositories, factory DispatcherFactory, logger *zap.Logger) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{
		settings:      settings,
		repos:         repos,
		newDispatcher: factory,
		form:          newFormValidator(),
		logger:        logger,
	}
}

// Prepare runs the checks needed to show the transition form. It never
// mutates anything. The returned error is set only for infrastructure failures.
func (h *RequestHandler) Prepare(ctx context.Context, req PrepareRequest) (*Validation, error) {
	v := newValidation(transition.TransitionType(req.TransitionType))
	v.begin()
	if err := h.checkRequest(ctx, v, req.AssetIDs); err != nil {
		return nil, err
	}
	v.complete()
	if v.Rejected() {
		h.logger.Info("transition request rejected",
			zap.String("transition_type", req.TransitionType),
			zap.Strings("errors", v.Errors))
	}
	return v, nil
}

// Submit validates the request and form, then runs the transition.
// Rejections are reported through SubmitResult.Validation; a returned error
// means the run itself failed and nothing was changed.
func (h *RequestHandler) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	v := newValidation(transition.TransitionType(req.TransitionType))
	v.begin()
	if err := h.checkRequest(ctx, v, req.AssetIDs); err != nil {
		return nil, err
	}
	if !v.HasErrors() {
		if err := h.checkReportTemplate(ctx, v); err != nil {
			return nil, err
		}
	}

	var formUser *identity.User
	var formWarehouse *asset.Warehouse
	if v.Transition != nil {
		var err error
		formUser, formWarehouse, err = h.checkForm(ctx, v, req.Form)
		if err != nil {
			return nil, err
		}
	}

	v.complete()
	if v.Rejected() {
		v.reject(MsgCorrectErrors)
		h.logger.Info("transition submit rejected",
			zap.String("transition_type", req.TransitionType),
			zap.Strings("errors", v.Errors),
			zap.Any("field_errors", v.FieldErrors))
		return &SubmitResult{Validation: v, Messages: v.Errors}, nil
	}

	loggedUser, err := h.repos.Users.FindByID(ctx, req.LoggedUserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load logged user: %w", err)
	}

	affectedUser, err := h.affectedUser(ctx, v, formUser)
	if err != nil {
		return nil, err
	}
	var warehouse *asset.Warehouse
	if v.AssignWarehouse {
		warehouse = formWarehouse
	}

	dispatcher, err := h.newDispatcher(DispatcherParams{
		Transition:   v.Transition,
		Assets:       v.Assets,
		LoggedUser:   loggedUser,
		AffectedUser: affectedUser,
		Template:     v.Template,
		Warehouse:    warehouse,
	})
	if err != nil {
		return nil, err
	}
	if err := dispatcher.Run(ctx); err != nil {
		return nil, fmt.Errorf("transition %s failed: %w", v.Transition.Slug, err)
	}

	return &SubmitResult{
		Validation:     v,
		History:        dispatcher.History(),
		ReportFileName: dispatcher.ReportFileName(),
		ReportFilePath: dispatcher.ReportFilePath(),
		Messages:       []string{MsgTransitionsSucceeded},
	}, nil
}

// =============================================================================
// Checks
// =============================================================================

// checkRequest runs the checks shared by the read and submit paths
func (h *RequestHandler) checkRequest(ctx context.Context, v *Validation, assetIDs []uuid.UUID) error {
	if !h.settings.Enabled {
		v.reject(MsgTransitionsDisabled)
	}

	supported := v.TransitionType.IsValid()
	if !supported {
		v.reject(MsgUnsupportedType)
	} else {
		t, err := h.findTransition(ctx, v.TransitionType)
		if err != nil {
			return err
		}
		if t == nil {
			v.reject(MsgTransitionNotFound)
		} else {
			v.Transition = t
			v.AssignUser = t.AssignsUser()
			v.AssignWarehouse = t.AssignsWarehouse()
		}
	}

	if err := h.loadAssets(ctx, v, assetIDs); err != nil {
		return err
	}

	if supported && v.TransitionType == transition.TypeReturnAsset && len(v.Assets) > 0 {
		return h.checkOwners(ctx, v)
	}
	return nil
}

func (h *RequestHandler) findTransition(ctx context.Context, t transition.TransitionType) (*transition.Transition, error) {
	slug, ok := h.settings.TransitionSlug(t)
	if !ok {
		return nil, nil
	}
	found, err := h.repos.Transitions.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load transition %s: %w", slug, err)
	}
	return found, nil
}

func (h *RequestHandler) loadAssets(ctx context.Context, v *Validation, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		v.reject(MsgNoAssetsSelected)
		return nil
	}

	found, err := h.repos.Assets.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load assets: %w", err)
	}
	byID := make(map[uuid.UUID]*asset.Asset, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	assets := make([]*asset.Asset, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			v.reject(fmt.Sprintf(MsgAssetNotFound, id))
			continue
		}
		assets = append(assets, a)
	}
	v.Assets = assets
	return nil
}

// checkOwners requires every asset of a return to have the same, non-empty owner
func (h *RequestHandler) checkOwners(ctx context.Context, v *Validation) error {
	var owners []*uuid.UUID
	seen := make(map[uuid.UUID]bool)
	seenUnowned := false
	for _, a := range v.Assets {
		if a.OwnerID == nil {
			if !seenUnowned {
				seenUnowned = true
				owners = append(owners, nil)
			}
			continue
		}
		if !seen[*a.OwnerID] {
			seen[*a.OwnerID] = true
			owners = append(owners, a.OwnerID)
		}
	}

	if len(owners) > 1 {
		names, err := h.ownerNames(ctx, owners)
		if err != nil {
			return err
		}
		v.reject(fmt.Sprintf(MsgDifferentUsers, strings.Join(names, ", ")))
		return nil
	}
	if owners[0] == nil {
		v.reject(MsgNoAssignedUser)
	}
	return nil
}

func (h *RequestHandler) ownerNames(ctx context.Context, owners []*uuid.UUID) ([]string, error) {
	ids := make([]uuid.UUID, 0, len(owners))
	for _, id := range owners {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	users, err := h.repos.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset owners: %w", err)
	}
	usernames := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	names := make([]string, len(owners))
	for i, id := range owners {
		switch {
		case id == nil:
			names[i] = unassignedOwner
		case usernames[*id] != "":
			names[i] = usernames[*id]
		default:
			names[i] = id.String()
		}
	}
	return names, nil
}

func (h *RequestHandler) checkReportTemplate(ctx context.Context, v *Validation) error {
	slug, ok := h.settings.ReportSlug(v.TransitionType)
	if !ok {
		v.reject(MsgTemplateNotFound)
		return nil
	}
	tpl, err := h.repos.Templates.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			v.reject(MsgTemplateNotFound)
			return nil
		}
		return fmt.Errorf("failed to load report template %s: %w", slug, err)
	}
	v.Template = tpl
	return nil
}

// checkForm validates the fields the transition asks for and resolves them
func (h *RequestHandler) checkForm(ctx context.Context, v *Validation, form TransitionForm) (*identity.User, *asset.Warehouse, error) {
	for field, msg := range h.form.check(form, v.AssignUser, v.AssignWarehouse) {
		v.rejectField(field, msg)
	}

	var user *identity.User
	if v.AssignUser && v.FieldErrors[FieldUser] == "" {
		id, err := parseFormID(form.UserID)
		if err != nil {
			v.rejectField(FieldUser, "Invalid UUID format")
		} else {
			user, err = h.repos.Users.FindByID(ctx, id)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					return nil, nil, fmt.Errorf("failed to load user: %w", err)
				}
				v.rejectField(FieldUser, "User not found")
			}
		}
	}

	var warehouse *asset.Warehouse
	if v.AssignWarehouse && v.FieldErrors[FieldWarehouse] == "" {
		id, err := parseFormID(form.WarehouseID)
		if err != nil {
			v.rejectField(FieldWarehouse, "Invalid UUID format")
		} else {
			warehouse, err = h.repos.Warehouses.FindByID(ctx, id)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					return nil, nil, fmt.Errorf("failed to load warehouse: %w", err)
				}
				v.rejectField(FieldWarehouse, "Warehouse not found")
			}
		}
	}
	return user, warehouse, nil
}

// affectedUser is the current owner for a return, the form user otherwise
func (h *RequestHandler) affectedUser(ctx context.Context, v *Validation, formUser *identity.User) (*identity.User, error) {
	if v.TransitionType != transition.TypeReturnAsset {
		return formUser, nil
	}
	ownerID := v.Assets[0].OwnerID
	if ownerID == nil {
		return nil, nil
	}
	owner, err := h.repos.Users.FindByID(ctx, *ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset owner: %w", err)
	}
	return owner, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
