package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/donor-display-backend/internal/adapters/primary/csvimport"
	"github.com/lorrc/donor-display-backend/internal/adapters/primary/validation"
	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
	"github.com/lorrc/donor-display-backend/internal/core/ports"
)

const (
	defaultMaxUploadBytes = 10 << 20
	uploadFormField       = "file"
)

// DonorHandler handles HTTP requests for donors
type DonorHandler struct {
	donorService     ports.DonorService
	ingestionService ports.IngestionService
	errorHandler     *ErrorHandler
	maxUploadBytes   int64
	bulkMiddleware   []func(http.Handler) http.Handler
	logger           *slog.Logger
}

// DonorHandlerOption configures a DonorHandler
type DonorHandlerOption func(*DonorHandler)

// WithMaxUploadBytes limits the size of a bulk upload body
func WithMaxUploadBytes(n int64) DonorHandlerOption {
	return func(h *DonorHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithBulkMiddleware wraps only the bulk upload route, e.g. with a stricter rate limit
func WithBulkMiddleware(middlewares ...func(http.Handler) http.Handler) DonorHandlerOption {
	return func(h *DonorHandler) {
		h.bulkMiddleware = append(h.bulkMiddleware, middlewares...)
	}
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(
	donorService ports.DonorService,
	ingestionService ports.IngestionService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
	opts ...DonorHandlerOption,
) *DonorHandler {
	h := &DonorHandler{
		donorService:     donorService,
		ingestionService: ingestionService,
		errorHandler:     errorHandler,
		maxUploadBytes:   defaultMaxUploadBytes,
		logger:           logger.With("handler", "donor"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router sets up a new chi Router for all donor routes.
func (h *DonorHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all donor endpoints.
func (h *DonorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListDonors)
	r.Post("/", h.HandleCreateDonor)
	r.With(h.bulkMiddleware...).Post("/bulk", h.HandleBulkUpload)

	r.Route("/{donorID}", func(r chi.Router) {
		r.Get("/", h.HandleGetDonor)
		r.Put("/", h.HandleUpdateDonor)
		r.Delete("/", h.HandleDeleteDonor)
	})
}

// --- Request/Response DTOs ---

// DonorRequest defines the JSON body for creating or replacing a donor.
// Amount may be a JSON number or a numeric string.
type DonorRequest struct {
	Name    string          `json:"name"`
	Amount  json.RawMessage `json:"amount"`
	Grade   string          `json:"grade"`
	Message string          `json:"message"`

	amount int64
}

// Validate validates the donor request and coerces the amount
func (r *DonorRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxNameLength)

	if v.Present("amount", r.Amount) {
		amount, err := coerceAmount(r.Amount)
		v.Custom("amount", err == nil, apperrors.ErrInvalidAmount.Error())
		r.amount = amount
	}

	v.Required("grade", r.Grade).
		MaxLength("grade", r.Grade, domain.MaxGradeLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// coerceAmount accepts 1000, 1000.0 and "1000"
func coerceAmount(raw json.RawMessage) (int64, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return domain.ParseAmount(text)
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrInvalidAmount, raw)
	}
	return domain.ParseAmount(number.String())
}

func (r *DonorRequest) params() domain.DonorParams {
	return domain.DonorParams{
		Name:    r.Name,
		Amount:  r.amount,
		Grade:   r.Grade,
		Message: r.Message,
	}
}

// DonorDTO defines the JSON response for donors.
type DonorDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Grade     string `json:"grade"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func toDonorDTO(donor *domain.Donor) DonorDTO {
	return DonorDTO{
		ID:        donor.ID,
		Name:      donor.Name,
		Amount:    donor.Amount,
		Grade:     donor.Grade,
		Message:   donor.Message,
		CreatedAt: donor.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toDonorDTOs(donors []*domain.Donor) []DonorDTO {
	response := make([]DonorDTO, 0, len(donors))
	for _, donor := range donors {
		response = append(response, toDonorDTO(donor))
	}
	return response
}

// --- Handlers ---

// HandleListDonors handles GET /donors
func (h *DonorHandler) HandleListDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.donorService.ListDonors(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toDonorDTOs(donors))
}

// HandleCreateDonor handles POST /donors
func (h *DonorHandler) HandleCreateDonor(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[DonorRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	donor, err := h.donorService.CreateDonor(r.Context(), req.params())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteCreated(w, StatusResponse{Status: "success", ID: donor.ID})
}

// HandleGetDonor handles GET /donors/{donorID}
func (h *DonorHandler) HandleGetDonor(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(chi.URLParam(r, "donorID"))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	donor, err := h.donorService.GetDonor(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, toDonorDTO(donor))
}

// HandleUpdateDonor handles PUT /donors/{donorID}
func (h *DonorHandler) HandleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(chi.URLParam(r, "donorID"))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[DonorRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	donor, err := h.donorService.UpdateDonor(r.Context(), id, req.params())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, StatusResponse{Status: "success", ID: donor.ID})
}

// HandleDeleteDonor handles DELETE /donors/{donorID}
func (h *DonorHandler) HandleDeleteDonor(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(chi.URLParam(r, "donorID"))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if HandleError(w, r, h.donorService.DeleteDonor(r.Context(), id), h.errorHandler) {
		return
	}

	WriteSuccess(w, StatusResponse{Status: "success", ID: id})
}

// HandleBulkUpload handles POST /donors/bulk. The response is written only
// after every row has been paced out to the displays.
func (h *DonorHandler) HandleBulkUpload(w http.ResponseWriter, r *http.Request) {
	// A run takes at least (rows-1) pacing intervals, far beyond the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.DebugContext(r.Context(), "could not clear write deadline", "error", err)
	}

	if r.ContentLength > h.maxUploadBytes {
		h.errorHandler.Handle(w, r, uploadTooLarge(nil, h.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.errorHandler.Handle(w, r, uploadError(err))
		return
	}
	defer file.Close()

	if !csvimport.IsCSVFilename(header.Filename) {
		h.errorHandler.Handle(w, r, apperrors.ErrNotCSVFile)
		return
	}

	rows, err := csvimport.Parse(file)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "bulk upload accepted",
		"filename", header.Filename,
		"rows", len(rows),
	)

	processed, err := h.ingestionService.IngestSequence(r.Context(), rows)
	if err != nil {
		h.errorHandler.Handle(w, r, bulkError(processed, err))
		return
	}

	WriteSuccess(w, BulkUploadResponse{Status: "success", TotalProcessed: processed})
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return uploadTooLarge(err, maxErr.Limit)
	}
	return apperrors.NewBadRequestError(err, "A CSV file is required in the \"file\" form field")
}

func uploadTooLarge(err error, limit int64) error {
	if err == nil {
		err = apperrors.ErrBadRequest
	}
	return &apperrors.AppError{
		Err:        err,
		Message:    fmt.Sprintf("Upload exceeds %d bytes", limit),
		Code:       "UPLOAD_TOO_LARGE",
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// bulkError attaches the processed count, and the failing row when known, to a failed run.
func bulkError(processed int, err error) error {
	details := map[string]interface{}{"processed": processed}
	var rowErr *apperrors.RowError
	if errors.As(err, &rowErr) {
		details["row"] = rowErr.Row
	}

	switch {
	case errors.Is(err, apperrors.ErrIngestionInProgress):
		return apperrors.NewConflictError(err, "A bulk upload is already in progress")
	case apperrors.IsValidation(err):
		return apperrors.NewValidationError(err, err.Error(), details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &apperrors.AppError{
			Err:        err,
			Message:    "Bulk upload interrupted",
			Code:       "INGESTION_INTERRUPTED",
			StatusCode: http.StatusServiceUnavailable,
			Details:    details,
		}
	default:
		return &apperrors.AppError{
			Err:        err,
			Message:    "Failed to store donor",
			Code:       "PERSISTENCE_ERROR",
			StatusCode: http.StatusInternalServerError,
			Details:    details,
		}
	}
}
