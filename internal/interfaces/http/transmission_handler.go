package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// transmissionUseCase operaciones del servicio de transmisión que expone la API.
// Lo implementa *billing.TransmissionService.
type transmissionUseCase interface {
	SendDocument(ctx context.Context, cmd billing.SendCommand) (*billing.SendResult, error)
	RetryTransmission(ctx context.Context, cmd billing.RetryCommand) (*billing.SendResult, error)
	GetTransmission(ctx context.Context, caller entity.Caller, id string) (*entity.TransmissionRecord, error)
	NextCorrelative(ctx context.Context, companyID, documentType, series string) (*billing.CorrelativeResult, error)
}

// batchUseCase lo implementa *billing.BatchSender.
type batchUseCase interface {
	SendAll(ctx context.Context, cmds []billing.SendCommand) []billing.BatchItemResult
}

// maxBatchDocuments tope de documentos por lote.
const maxBatchDocuments = 100

// BatchItemResponse resultado de un documento del lote.
type BatchItemResponse struct {
	Index  int                 `json:"index"`
	Result *billing.SendResult `json:"result,omitempty"`
	Error  *dto.ErrorResponse  `json:"error,omitempty"`
}

// TransmissionHandler endpoints de envío de comprobantes a SUNAT (protegido).
type TransmissionHandler struct {
	uc    transmissionUseCase
	batch batchUseCase
	log   zerolog.Logger
}

// NewTransmissionHandler construye el handler. batch puede ser nil (sin endpoint de lote).
func NewTransmissionHandler(uc transmissionUseCase, batch batchUseCase, log zerolog.Logger) *TransmissionHandler {
	return &TransmissionHandler{uc: uc, batch: batch, log: log}
}

// Send godoc
// @Summary      Enviar comprobante a SUNAT
// @Description  Normaliza, firma, empaqueta y transmite una factura, boleta, nota de crédito o guía de remisión.
// @Tags         sunat
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SendDocumentRequest  true  "documento y ambiente opcional"
// @Success      201   {object}  billing.SendResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/sunat/documents [post]
func (h *TransmissionHandler) Send(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SendDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.uc.SendDocument(c.Context(), billing.SendCommand{
		CompanyID:      companyID,
		OrganizationID: GetOrganizationID(c),
		Document:       in.Document,
		Environment:    in.Environment,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// SendBatch godoc
// @Summary      Enviar lote de comprobantes
// @Description  Cada documento sigue su propio pipeline; los resultados conservan el orden de entrada.
// @Tags         sunat
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchSendRequest  true  "documentos"
// @Success      200   {array}   BatchItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sunat/documents/batch [post]
func (h *TransmissionHandler) SendBatch(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	if h.batch == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "BATCH_DISABLED", Message: "envío por lotes no habilitado"})
	}
	var in dto.BatchSendRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.Documents) == 0 || len(in.Documents) > maxBatchDocuments {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: domain.TagBadRequest, Message: "el lote debe tener entre 1 y 100 documentos"})
	}
	cmds := make([]billing.SendCommand, len(in.Documents))
	for i, doc := range in.Documents {
		cmds[i] = billing.SendCommand{
			CompanyID:      companyID,
			OrganizationID: GetOrganizationID(c),
			Document:       doc,
			Environment:    in.Environment,
		}
	}
	results := h.batch.SendAll(c.Context(), cmds)
	out := make([]BatchItemResponse, len(results))
	for i, r := range results {
		out[i] = BatchItemResponse{Index: r.Index, Result: r.Result}
		if r.Err != nil {
			_, body := errorBody(r.Err)
			out[i].Error = &body
		}
	}
	return c.JSON(out)
}

// Retry godoc
// @Summary      Reintentar transmisión fallida
// @Description  Solo org_admin o super_admin. Reenvía el payload almacenado.
// @Tags         sunat
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transmisión"
// @Success      200  {object}  billing.SendResult
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sunat/transmissions/{id}/retry [post]
func (h *TransmissionHandler) Retry(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	res, err := h.uc.RetryTransmission(c.Context(), billing.RetryCommand{TransmissionID: id, Caller: GetCaller(c)})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// Get godoc
// @Summary      Consultar transmisión
// @Tags         sunat
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transmisión"
// @Success      200  {object}  dto.TransmissionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sunat/transmissions/{id} [get]
func (h *TransmissionHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	rec, err := h.uc.GetTransmission(c.Context(), GetCaller(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.NewTransmissionResponse(rec))
}

// NextCorrelative godoc
// @Summary      Siguiente correlativo
// @Tags         sunat
// @Security     Bearer
// @Produce      json
// @Param        documentType  query     string  true   "01, 03, 07, 09 o INVOICE, SIMPLIFIED_RECEIPT, CREDIT_NOTE, DISPATCH_ADVICE"
// @Param        series        query     string  false  "serie; vacío usa la última emitida"
// @Success      200           {object}  billing.CorrelativeResult
// @Failure      400           {object}  dto.ErrorResponse
// @Router       /api/sunat/correlatives/next [get]
func (h *TransmissionHandler) NextCorrelative(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	docType := c.Query("documentType")
	if docType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "documentType requerido"})
	}
	res, err := h.uc.NextCorrelative(c.Context(), companyID, docType, c.Query("series"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *TransmissionHandler) fail(c *fiber.Ctx, err error) error {
	status, body := errorBody(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("[SUNAT] error en la solicitud")
	}
	return c.Status(status).JSON(body)
}

// errorBody traduce la taxonomía de errores de dominio a HTTP.
func errorBody(err error) (int, dto.ErrorResponse) {
	tag := domain.TagOf(err)
	body := dto.ErrorResponse{Code: tag, Message: err.Error()}
	var failed *billing.FailedAttemptError
	if errors.As(err, &failed) {
		body.TransmissionID = failed.TransmissionID
	}
	switch tag {
	case domain.TagValidation, domain.TagBadRequest:
		return fiber.StatusBadRequest, body
	case domain.TagPermission:
		return fiber.StatusForbidden, body
	case domain.TagNotFound:
		return fiber.StatusNotFound, body
	case domain.TagConflict:
		return fiber.StatusConflict, body
	case domain.TagCredentials, domain.TagSigning:
		return fiber.StatusUnprocessableEntity, body
	case domain.TagTransmission, domain.TagBlockedDestination, domain.TagReceiptParse:
		return fiber.StatusBadGateway, body
	}
	body.Message = "error interno"
	return fiber.StatusInternalServerError, body
}
