package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/api/shared"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/phrazzld/jiralike-api/internal/redact"
	"github.com/phrazzld/jiralike-api/internal/service"
)

// MaxUploadBytes bounds the size of a multipart upload.
const MaxUploadBytes = 32 << 20

// uploadField is the multipart form field carrying the attachment.
const uploadField = "file"

// TaskHandler handles task, comment and attachment requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("task service cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /tasks. Supported query parameters are q (headline
// substring), status (open or closed) and owner_id.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.TaskFilter{Query: query.Get("q")}

	if s := query.Get("status"); s != "" {
		status, err := domain.ParseTaskStatus(s)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		filter.Status = status
	}

	if s := query.Get("owner_id"); s != "" {
		ownerID, err := uuid.Parse(s)
		if err != nil {
			HandleAPIError(w, r,
				domain.NewValidationError("owner_id", "has invalid format", domain.ErrInvalidID), "")
			return
		}
		filter.OwnerID = ownerID
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	detail, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailToResponse(detail))
}

// ListComments handles GET /tasks/{id}/comments.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	comments, err := h.tasks.ListComments(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list comments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, commentsToResponse(comments))
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), user, req.Headline, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, taskID, ok := handleUserAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), user, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment handles POST /tasks/{id}/comments.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, taskID, ok := handleUserAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	comment, err := h.tasks.AddComment(r.Context(), user, taskID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add comment")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, commentToResponse(comment))
}

// CloseTask handles POST /tasks/{id}/close.
func (h *TaskHandler) CloseTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, taskID, ok := handleUserAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.CloseTask(r.Context(), user, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to close task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UploadFile handles POST /tasks/{id}/file with a multipart "file" field.
func (h *TaskHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, taskID, ok := handleUserAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	part, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		log.Debug("invalid multipart upload", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "A multipart file field is required", err,
			shared.WithFields(map[string]string{uploadField: "is required"}))
		return
	}
	defer func() { _ = part.Close() }()

	file, err := h.tasks.AttachFile(r.Context(), user, taskID, service.Upload{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  part,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store file")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, fileToResponse(file))
}

// DownloadFile handles GET /tasks/{id}/file, streaming the attachment.
func (h *TaskHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, taskID, ok := handleUserAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	file, content, err := h.tasks.RetrieveFile(r.Context(), user, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read file")
		return
	}
	defer func() { _ = content.Close() }()

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = domain.DefaultMimeType
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		// Headers are gone; all that is left is to log.
		log.Warn("failed to stream file",
			slog.String("error", redact.Error(err)),
			slog.String("task_id", taskID.String()))
	}
}
