package transition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRun is returned when Run is called a second time on a dispatcher
	ErrAlreadyRun = shared.NewDomainError("ALREADY_RUN", "Transition has already been run")
	// ErrTemplateRequired is returned when a report action is configured but no template was given
	ErrTemplateRequired = shared.NewDomainError("TEMPLATE_REQUIRED", "Report template is required to generate a report")
)

// DispatcherParams are the inputs of a single transition run
type DispatcherParams struct {
	Transition   *transition.Transition
	Assets       []*asset.Asset
	LoggedUser   *identity.User
	AffectedUser *identity.User
	// Template is required only when the transition generates a report
	Template *transition.ReportTemplateSource
	// Warehouse is used by assign_warehouse; nil clears the warehouse
	Warehouse *asset.Warehouse
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithReportArchive uploads generated reports before the history is recorded
func WithReportArchive(archive ReportArchive) DispatcherOption {
	return func(d *Dispatcher) {
		d.archive = archive
	}
}

// WithClock overrides the time source used for report timestamps
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithRunIDGenerator overrides how run ids are generated
func WithRunIDGenerator(gen func() uuid.UUID) DispatcherOption {
	return func(d *Dispatcher) {
		d.newRunID = gen
	}
}

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records run counts and durations
func WithMetrics(metrics *telemetry.TransitionMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// Dispatcher executes the actions of one transition against a batch of
// assets inside a single transaction, then records the run in history.
// A Dispatcher runs once.
type Dispatcher struct {
	params          DispatcherParams
	scope           TransactionScope
	renderer        ReportRenderer
	archive         ReportArchive
	tempStoragePath string
	logger          *zap.Logger
	metrics         *telemetry.TransitionMetrics
	now             func() time.Time
	newRunID        func() uuid.UUID

	ran            bool
	runID          uuid.UUID
	reportFileName string
	reportFilePath string
	history        *transition.TransitionHistory
}

// NewDispatcher validates params and creates a Dispatcher
func NewDispatcher(
	scope TransactionScope,
	renderer ReportRenderer,
	tempStoragePath string,
	params DispatcherParams,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	if params.Transition == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transition is required")
	}
	if len(params.Assets) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one asset is required")
	}
	for _, a := range params.Assets {
		if a == nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "Asset list contains an empty entry")
		}
	}
	if params.LoggedUser == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Logged user is required")
	}

	d := &Dispatcher{
		params:          params,
		scope:           scope,
		renderer:        renderer,
		tempStoragePath: tempStoragePath,
		logger:          zap.NewNop(),
		now:             time.Now,
		newRunID:        uuid.New,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// actionOrder lists every action in the order it runs. An action is
// skipped when the action it is superseded by is also configured.
var actionOrder = []struct {
	action       transition.Action
	supersededBy transition.Action
}{
	{action: transition.ActionChangeStatus},
	{action: transition.ActionAssignUser},
	{action: transition.ActionUnassignUser, supersededBy: transition.ActionAssignUser},
	{action: transition.ActionAssignWarehouse},
	{action: transition.ActionReleaseReport},
	{action: transition.ActionReturnReport, supersededBy: transition.ActionReleaseReport},
}

// PlannedActions returns the actions a run of t executes, in execution order
func PlannedActions(t *transition.Transition) []transition.Action {
	return plan(t.ActionSet())
}

func plan(configured transition.ActionSet) []transition.Action {
	var out []transition.Action
	for _, step := range actionOrder {
		if !configured.Has(step.action) {
			continue
		}
		if step.supersededBy != "" && configured.Has(step.supersededBy) {
			continue
		}
		out = append(out, step.action)
	}
	return out
}

// handler returns the function that applies action to a run
func (d *Dispatcher) handler(action transition.Action) func(ctx context.Context, run *runState) error {
	switch action {
	case transition.ActionChangeStatus:
		return d.changeStatus
	case transition.ActionAssignUser:
		return d.assignUser
	case transition.ActionUnassignUser:
		return d.unassignUser
	case transition.ActionAssignWarehouse:
		return d.assignWarehouse
	case transition.ActionReleaseReport, transition.ActionReturnReport:
		return d.generateReport
	default:
		return nil
	}
}

// runState is what one run has produced so far
type runState struct {
	repos          TransactionalRepositories
	assets         []*asset.Asset
	reportFileName string
	reportFilePath string
	reportFileURL  string
}

// Run executes the transition. Asset changes, report generation and the
// history record happen in one transaction; on any error nothing is kept
// and a report written or archived during the run is removed.
func (d *Dispatcher) Run(ctx context.Context) (err error) {
	if d.ran {
		return ErrAlreadyRun
	}
	d.ran = true
	d.runID = d.newRunID()

	ctx, span := telemetry.StartServiceSpan(ctx, "transition", "run",
		telemetry.WithAttribute(telemetry.SpanAttrTransitionSlug, d.params.Transition.Slug),
		telemetry.WithAttribute(telemetry.SpanAttrRunID, d.runID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAssetCount, len(d.params.Assets)),
	)
	defer span.End()

	started := d.now()
	defer func() {
		d.metrics.RecordRun(ctx, d.params.Transition.Slug, len(d.params.Assets), d.now().Sub(started), err)
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if err := d.checkTemplate(); err != nil {
		return err
	}

	state := &runState{assets: cloneAssets(d.params.Assets)}
	actions := plan(d.params.Transition.ActionSet())

	err = d.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		state.repos = repos
		for _, action := range actions {
			d.logger.Debug("running transition action",
				zap.String("transition", d.params.Transition.Slug),
				zap.String("action", action.String()),
				zap.String("run_id", d.runID.String()))
			if err := d.handler(action)(ctx, state); err != nil {
				return fmt.Errorf("action %s: %w", action, err)
			}
		}
		if err := d.archiveReport(ctx, state); err != nil {
			return err
		}
		history, err := d.recordHistory(ctx, state)
		if err != nil {
			return err
		}
		d.history = history
		return nil
	})
	if err != nil {
		d.history = nil
		d.discardReport(state.reportFilePath)
		d.discardArchived(ctx, state.reportFileURL)
		d.logger.Error("transition run failed",
			zap.String("transition", d.params.Transition.Slug),
			zap.String("run_id", d.runID.String()),
			zap.Error(err))
		return err
	}

	// Publish the committed state to the caller's assets
	for i, a := range state.assets {
		*d.params.Assets[i] = *a
	}
	d.reportFileName = state.reportFileName
	d.reportFilePath = state.reportFilePath

	d.logger.Info("transition run completed",
		zap.String("transition", d.params.Transition.Slug),
		zap.String("run_id", d.runID.String()),
		zap.Int("assets", len(state.assets)),
		zap.String("report", state.reportFileName))
	return nil
}

// History returns the history record of a successful run
func (d *Dispatcher) History() *transition.TransitionHistory {
	return d.history
}

// ReportFilePath returns where the report was written, or "" when none was generated
func (d *Dispatcher) ReportFilePath() string {
	return d.reportFilePath
}

// ReportFileName returns the report file name, or "" when none was generated
func (d *Dispatcher) ReportFileName() string {
	return d.reportFileName
}

// RunID returns the id of the last run
func (d *Dispatcher) RunID() uuid.UUID {
	return d.runID
}

// =============================================================================
// Actions
// =============================================================================

func (d *Dispatcher) changeStatus(ctx context.Context, run *runState) error {
	return d.saveEach(ctx, run, func(a *asset.Asset) error {
		return a.ChangeStatus(d.params.Transition.ToStatus)
	})
}

func (d *Dispatcher) assignUser(ctx context.Context, run *runState) error {
	if d.params.AffectedUser == nil {
		return shared.NewDomainError("USER_REQUIRED", "Affected user is required to assign assets")
	}
	userID := d.params.AffectedUser.ID
	return d.saveEach(ctx, run, func(a *asset.Asset) error {
		a.AssignOwner(userID)
		return nil
	})
}

func (d *Dispatcher) unassignUser(ctx context.Context, run *runState) error {
	return d.saveEach(ctx, run, func(a *asset.Asset) error {
		a.UnassignOwner()
		return nil
	})
}

func (d *Dispatcher) assignWarehouse(ctx context.Context, run *runState) error {
	var warehouseID *uuid.UUID
	if d.params.Warehouse != nil {
		id := d.params.Warehouse.ID
		warehouseID = &id
	}
	return d.saveEach(ctx, run, func(a *asset.Asset) error {
		a.MoveToWarehouse(warehouseID)
		return nil
	})
}

func (d *Dispatcher) generateReport(ctx context.Context, run *runState) error {
	tpl := d.params.Template
	fileName := tpl.ReportFileName(d.runID)
	outputPath := d.tempStoragePath + fileName

	data := ReportData{
		Assets:       run.assets,
		LoggedUser:   d.params.LoggedUser,
		AffectedUser: d.params.AffectedUser,
		Timestamp:    d.now(),
		RunID:        d.runID,
	}
	// Set before rendering so a partially written file is cleaned up too
	run.reportFilePath = outputPath
	if err := d.renderer.Render(ctx, tpl.TemplatePath, outputPath, data); err != nil {
		return fmt.Errorf("failed to render report %s: %w", fileName, err)
	}
	run.reportFileName = fileName
	return nil
}

func (d *Dispatcher) saveEach(ctx context.Context, run *runState, mutate func(*asset.Asset) error) error {
	repo := run.repos.AssetRepo()
	for _, a := range run.assets {
		if err := mutate(a); err != nil {
			return err
		}
		if err := repo.Save(ctx, a); err != nil {
			return fmt.Errorf("failed to save asset %s: %w", a.ID, err)
		}
	}
	return nil
}

// =============================================================================
// Report archive and history
// =============================================================================

func (d *Dispatcher) archiveReport(ctx context.Context, run *runState) error {
	if d.archive == nil || run.reportFileName == "" {
		return nil
	}
	url, err := d.archive.Archive(ctx, run.reportFilePath, run.reportFileName)
	if err != nil {
		return fmt.Errorf("failed to archive report %s: %w", run.reportFileName, err)
	}
	run.reportFileURL = url
	return nil
}

func (d *Dispatcher) recordHistory(ctx context.Context, run *runState) (*transition.TransitionHistory, error) {
	assetIDs := make([]uuid.UUID, len(run.assets))
	for i, a := range run.assets {
		assetIDs[i] = a.ID
	}
	var affectedUserID *uuid.UUID
	if d.params.AffectedUser != nil {
		id := d.params.AffectedUser.ID
		affectedUserID = &id
	}

	history, err := transition.NewTransitionHistory(transition.HistoryParams{
		TransitionID:   d.params.Transition.ID,
		AssetIDs:       assetIDs,
		LoggedUserID:   d.params.LoggedUser.ID,
		AffectedUserID: affectedUserID,
		RunID:          d.runID,
		ReportFilename: run.reportFileName,
		ReportFilePath: pathIfReport(run),
		ReportFileURL:  run.reportFileURL,
		CreatedAt:      d.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := run.repos.HistoryRepo().Create(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to record transition history: %w", err)
	}
	if err := run.repos.PublishEvents(ctx, transition.NewAssetsTransitionedEvent(d.params.Transition, history)); err != nil {
		return nil, fmt.Errorf("failed to record transition event: %w", err)
	}
	return history, nil
}

func (d *Dispatcher) checkTemplate() error {
	if d.params.Template == nil && d.params.Transition.ActionSet().HasReport() {
		return ErrTemplateRequired
	}
	return nil
}

func (d *Dispatcher) discardReport(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove report of failed run",
			zap.String("path", path),
			zap.Error(err))
	}
}

// discardArchived removes a report archived before the transaction failed
func (d *Dispatcher) discardArchived(ctx context.Context, location string) {
	if d.archive == nil || location == "" {
		return
	}
	// The run may have failed because ctx was cancelled
	if err := d.archive.Remove(context.WithoutCancel(ctx), location); err != nil {
		d.logger.Warn("failed to remove archived report of failed run",
			zap.String("location", location),
			zap.String("run_id", d.runID.String()),
			zap.Error(err))
	}
}

func pathIfReport(run *runState) string {
	if run.reportFileName == "" {
		return ""
	}
	return run.reportFilePath
}

func cloneAssets(assets []*asset.Asset) []*asset.Asset {
	out := make([]*asset.Asset, len(assets))
	for i, a := range assets {
		out[i] = a.Clone()
	}
	return out
}
