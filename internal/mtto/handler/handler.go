package handler

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/config"
	"github.com/OscarR093/reportesMtto/internal/mtto/equipment"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// Handlers colección de handlers
type Handlers struct {
	Report    *ReportHandler
	Pending   *PendingHandler
	Equipment *EquipmentHandler
	Auth      *AuthHandler
	User      *UserHandler
	Upload    *UploadHandler
	SSE       *SSEHandler
}

func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	loc := cfg.App.Location()
	return &Handlers{
		Report:    NewReportHandler(svc.Report, loc),
		Pending:   NewPendingHandler(svc.Pending, loc),
		Equipment: NewEquipmentHandler(svc.Equipment),
		Auth:      NewAuthHandler(svc.Auth, cfg.Server.FrontendURL),
		User:      NewUserHandler(svc.User),
		Upload:    NewUploadHandler(svc.Storage),
		SSE:       NewSSEHandler(svc.Hub),
	}
}

// Response sobre común de respuesta
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse lista paginada
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

// Error el código HTTP es code/100
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// errorCodes orden de evaluación de errores de dominio
var errorCodes = []struct {
	kind error
	code int
}{
	{service.ErrValidation, 40001},
	{service.ErrInvalidEquipment, 40002},
	{service.ErrInvalidTarget, 40003},
	{service.ErrInvalidStatus, 40004},
	{service.ErrUnauthorized, 40100},
	{service.ErrForbidden, 40300},
	{service.ErrNotFound, 40400},
	{service.ErrConflict, 40900},
	{service.ErrDataUnavailable, 50001},
	{equipment.ErrDataUnavailable, 50001},
}

// HandleError traduce errores de servicio al sobre de respuesta. Los errores
// no tipados se registran y se responden sin detalle.
func HandleError(c *gin.Context, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			message := err.Error()
			var de *service.DomainError
			if errors.As(err, &de) {
				message = de.Message
			} else if ec.code == 50001 {
				message = "catálogo de equipos no disponible"
			}
			Error(c, ec.code, message)
			return
		}
	}
	c.Error(err)
	InternalError(c, "error interno del servidor")
}

// GetUserID usuario autenticado
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination page y page_size (limit también se acepta)
func GetPagination(c *gin.Context) repository.Page {
	page := repository.Page{Page: 1, Limit: 20}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page.Page = p
	}
	size := c.Query("page_size")
	if size == "" {
		size = c.Query("limit")
	}
	if v, err := strconv.Atoi(size); err == nil && v > 0 {
		page.Limit = v
	}
	return page.Normalize()
}

// parseDateRange date_from y date_to en AAAA-MM-DD hora de planta; date_to
// es inclusivo
func parseDateRange(c *gin.Context, loc *time.Location) (from, to *time.Time, err error) {
	if v := strings.TrimSpace(c.Query("date_from")); v != "" {
		t, perr := time.ParseInLocation("2006-01-02", v, loc)
		if perr != nil {
			return nil, nil, perr
		}
		from = &t
	}
	if v := strings.TrimSpace(c.Query("date_to")); v != "" {
		t, perr := time.ParseInLocation("2006-01-02", v, loc)
		if perr != nil {
			return nil, nil, perr
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	return from, to, nil
}

// bindOptionalJSON acepta cuerpo vacío; un JSON mal formado sí es error
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "cuerpo JSON inválido: "+err.Error())
		return false
	}
	return true
}

// splitList "a,b" -> [a b]
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// writeWorkbook envía el libro como descarga
func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"; filename*=UTF-8''`+url.PathEscape(filename))
	c.Status(200)
	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}
