package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
	"github.com/hitoshi/taskman/internal/task"
)

// dueDateFormat はAPIで使用する期限日のフォーマット。
const dueDateFormat = "2006-01-02"

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// CreateTask はプロジェクト配下にタスクを作成する。オーナーのみ実行できる。
	CreateTask(ctx context.Context, userID, projectID string, in task.CreateInput) (*repository.TaskWithAssignee, error)
	// ListTasks はユーザーに可視なタスク一覧を返す。
	ListTasks(ctx context.Context, userID string, filter repository.TaskFilter) ([]repository.TaskWithAssignee, error)
	// GetTask は可視な単一タスクを返す。可視でない場合はTaskNotFound。
	GetTask(ctx context.Context, userID, taskID string) (*repository.TaskWithAssignee, error)
	// UpdateTask はタスクを部分更新する。プロジェクトオーナーのみ実行できる。
	UpdateTask(ctx context.Context, userID, taskID string, in task.UpdateInput) (*repository.TaskWithAssignee, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	DueDate     string `json:"due_date"`
	AssigneeID  string `json:"assignee_id"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// 省略されたフィールドは変更しない。due_dateはnullの明示で期限日をクリアする。
// due_dateはポインタにするとnullと省略を区別できなくなるため、
// 非ポインタのjson.RawMessageで受けて長さ0を省略として扱う。
type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *int            `json:"priority"`
	DueDate     json.RawMessage `json:"due_date"`
	AssigneeID  *string         `json:"assignee_id"`
}

// taskResponse はタスク情報のAPIレスポンス。
// assigneeには担当者のユーザー名が入る（未割り当てはnull）。
type taskResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    int       `json:"priority"`
	DueDate     *string   `json:"due_date"`
	Assignee    *string   `json:"assignee"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTask はプロジェクト配下へのタスク作成を処理する。
// POST /api/projects/{projectID}/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projectID := chi.URLParam(r, "projectID")

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	in := task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	}

	if req.DueDate != "" {
		due, err := time.ParseInLocation(dueDateFormat, req.DueDate, time.Local)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("due_date", "期限日はYYYY-MM-DD形式で指定してください。"))
			return
		}
		in.DueDate = &due
	}

	created, err := h.service.CreateTask(r.Context(), userID, projectID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(created))
}

// ListTasks は認証ユーザーに可視なタスク一覧を返す。
// 可視性: プロジェクトのオーナーであるか、タスクの担当者であるか（和集合）。
// GET /api/tasks?status=xxx&project_id=yyy&due_before=2006-01-02
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var filter repository.TaskFilter

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := model.TaskStatus(statusParam)
		if !status.Valid() {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidStatusError(statusParam))
			return
		}
		filter.Status = status
	}

	filter.ProjectID = r.URL.Query().Get("project_id")

	if dueBeforeParam := r.URL.Query().Get("due_before"); dueBeforeParam != "" {
		dueBefore, err := time.ParseInLocation(dueDateFormat, dueBeforeParam, time.Local)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("due_before", "日付はYYYY-MM-DD形式で指定してください。"))
			return
		}
		filter.DueBefore = &dueBefore
	}

	tasks, err := h.service.ListTasks(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, toTaskResponse(&tasks[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetTask は単一タスクの取得を処理する。
// GET /api/tasks/{taskID}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "taskID")

	t, err := h.service.GetTask(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// UpdateTask はタスクの部分更新を処理する。
// PATCH /api/tasks/{taskID}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "taskID")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	in := task.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	}

	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		in.Status = &status
	}

	// due_dateはキーの有無で「変更なし」と「クリア(null)」を区別する
	if len(req.DueDate) > 0 {
		in.DueDateSet = true
		if string(req.DueDate) != "null" {
			var dateStr string
			if err := json.Unmarshal(req.DueDate, &dateStr); err != nil {
				writeAPIErrorResponse(w, http.StatusBadRequest,
					model.NewValidationError("due_date", "期限日はYYYY-MM-DD形式で指定してください。"))
				return
			}
			due, err := time.ParseInLocation(dueDateFormat, dateStr, time.Local)
			if err != nil {
				writeAPIErrorResponse(w, http.StatusBadRequest,
					model.NewValidationError("due_date", "期限日はYYYY-MM-DD形式で指定してください。"))
				return
			}
			in.DueDate = &due
		}
	}

	updated, err := h.service.UpdateTask(r.Context(), userID, taskID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(updated))
}

// toTaskResponse はrepository.TaskWithAssigneeからAPIレスポンスに変換する。
func toTaskResponse(t *repository.TaskWithAssignee) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}

	if t.DueDate != nil {
		due := t.DueDate.Format(dueDateFormat)
		resp.DueDate = &due
	}

	if t.AssigneeID != "" {
		username := t.AssigneeUsername
		resp.Assignee = &username
	}

	return resp
}
