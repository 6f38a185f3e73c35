package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskman/internal/dashboard"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	// GetSummary はユーザーのダッシュボード集計を返す。
	GetSummary(ctx context.Context, userID string) (*dashboard.Summary, error)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

// dashboardResponse はダッシュボードのAPIレスポンス。
// TopUpcomingはタスクの配列だが、1件もない場合は既存クライアントとの互換のため
// 文字列メッセージになる。型が変わるためanyで表現する。
type dashboardResponse struct {
	TotalProjects int            `json:"total_projects"`
	TotalTasks    int            `json:"total_tasks"`
	TasksByStatus map[string]int `json:"tasks_by_status"`
	TopUpcoming   any            `json:"top_5_upcoming"`
}

// GetDashboard はダッシュボード集計を返す。
// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	summary, err := h.service.GetSummary(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	byStatus := make(map[string]int, len(summary.TasksByStatus))
	for status, count := range summary.TasksByStatus {
		byStatus[string(status)] = count
	}

	resp := dashboardResponse{
		TotalProjects: summary.TotalProjects,
		TotalTasks:    summary.TotalTasks,
		TasksByStatus: byStatus,
	}

	if len(summary.Upcoming) == 0 {
		resp.TopUpcoming = dashboard.NoUpcomingTasksMessage
	} else {
		upcoming := make([]taskResponse, 0, len(summary.Upcoming))
		for i := range summary.Upcoming {
			upcoming = append(upcoming, toTaskResponse(&summary.Upcoming[i]))
		}
		resp.TopUpcoming = upcoming
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
