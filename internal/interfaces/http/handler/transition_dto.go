package handler

import (
	"time"

	"github.com/google/uuid"
	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/transition"
)

// TransitionSubmitRequest is the transition form. Which fields are required
// depends on the transition's actions.
type TransitionSubmitRequest struct {
	UserID      string `json:"user_id"`
	WarehouseID string `json:"warehouse_id"`
}

// HistoryListQuery filters the history listing
type HistoryListQuery struct {
	TransitionID   string `form:"transition_id" binding:"omitempty,uuid"`
	AssetID        string `form:"asset_id" binding:"omitempty,uuid"`
	LoggedUserID   string `form:"logged_user_id" binding:"omitempty,uuid"`
	AffectedUserID string `form:"affected_user_id" binding:"omitempty,uuid"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q HistoryListQuery) toFilter() apptransition.HistoryFilter {
	return apptransition.HistoryFilter{
		TransitionID:   optionalUUID(q.TransitionID),
		AssetID:        optionalUUID(q.AssetID),
		LoggedUserID:   optionalUUID(q.LoggedUserID),
		AffectedUserID: optionalUUID(q.AffectedUserID),
		Page:           q.Page,
		PageSize:       q.PageSize,
		OrderDir:       q.OrderDir,
	}
}

// AssetResponse is an asset selected for a transition
// @name HandlerAssetResponse
type AssetResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type" example:"back_office"`
	SN          *string    `json:"sn,omitempty"`
	Barcode     *string    `json:"barcode,omitempty"`
	Status      string     `json:"status" example:"in_stock"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	Price       string     `json:"price" example:"1299.99"`
	Remarks     string     `json:"remarks,omitempty"`
}

// TransitionPrepareResponse describes the form to show for a transition
type TransitionPrepareResponse struct {
	TransitionType  string          `json:"transition_type" example:"release-asset"`
	DisplayName     string          `json:"display_name" example:"Release Asset"`
	TransitionName  string          `json:"transition_name"`
	AssignUser      bool            `json:"assign_user"`
	AssignWarehouse bool            `json:"assign_warehouse"`
	Assets          []AssetResponse `json:"assets"`
	Messages        []string        `json:"messages"`
}

// TransitionSubmitResponse is the outcome of a performed transition
type TransitionSubmitResponse struct {
	HistoryID      uuid.UUID `json:"history_id"`
	RunID          uuid.UUID `json:"run_id"`
	ReportFileName string    `json:"report_file_name,omitempty"`
	ReportLink     string    `json:"report_link,omitempty"`
	Messages       []string  `json:"messages"`
}

// TransitionHistoryResponse is one performed transition
type TransitionHistoryResponse struct {
	ID             uuid.UUID   `json:"id"`
	TransitionID   uuid.UUID   `json:"transition_id"`
	AssetIDs       []uuid.UUID `json:"asset_ids"`
	LoggedUserID   uuid.UUID   `json:"logged_user_id"`
	AffectedUserID *uuid.UUID  `json:"affected_user_id,omitempty"`
	RunID          uuid.UUID   `json:"run_id"`
	ReportFileName *string     `json:"report_file_name,omitempty"`
	ReportLink     string      `json:"report_link,omitempty"`
	Archived       bool        `json:"archived"`
	CreatedAt      time.Time   `json:"created_at"`
}

func toAssetResponse(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		Type:        string(a.Type),
		SN:          a.SN,
		Barcode:     a.Barcode,
		Status:      a.Status.String(),
		OwnerID:     a.OwnerID,
		WarehouseID: a.WarehouseID,
		Price:       a.Price.StringFixed(2),
		Remarks:     a.Remarks,
	}
}

func toPrepareResponse(v *apptransition.Validation) TransitionPrepareResponse {
	assets := make([]AssetResponse, len(v.Assets))
	for i, a := range v.Assets {
		assets[i] = toAssetResponse(a)
	}
	resp := TransitionPrepareResponse{
		TransitionType:  v.TransitionType.String(),
		DisplayName:     v.TransitionType.DisplayName(),
		AssignUser:      v.AssignUser,
		AssignWarehouse: v.AssignWarehouse,
		Assets:          assets,
		Messages:        append([]string{}, v.Errors...),
	}
	if v.Transition != nil {
		resp.TransitionName = v.Transition.Name
	}
	return resp
}

func toSubmitResponse(r *apptransition.SubmitResult) TransitionSubmitResponse {
	resp := TransitionSubmitResponse{
		HistoryID:      r.History.ID,
		RunID:          r.History.RunID,
		ReportFileName: r.ReportFileName,
		Messages:       r.Messages,
	}
	if r.History.HasReport() {
		resp.ReportLink = reportLink(r.History.ID)
	}
	return resp
}

func toHistoryResponse(h *transition.TransitionHistory) TransitionHistoryResponse {
	resp := TransitionHistoryResponse{
		ID:             h.ID,
		TransitionID:   h.TransitionID,
		AssetIDs:       h.AssetIDs,
		LoggedUserID:   h.LoggedUserID,
		AffectedUserID: h.AffectedUserID,
		RunID:          h.RunID,
		ReportFileName: h.ReportFilename,
		Archived:       h.ReportFileURL != nil,
		CreatedAt:      h.CreatedAt,
	}
	if h.HasReport() {
		resp.ReportLink = reportLink(h.ID)
	}
	return resp
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
