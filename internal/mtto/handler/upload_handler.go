package handler

import (
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
)

// maxUploadSize por archivo
const maxUploadSize = 10 << 20

// uploadFolders carpetas aceptadas; las de imágenes rechazan otros tipos
var uploadFolders = map[string]bool{
	"evidence": true,
	"avatars":  true,
}

// UploadHandler subida de imágenes a MinIO o disco local
type UploadHandler struct {
	storage *service.StorageService
}

func NewUploadHandler(storage *service.StorageService) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload POST /upload?folder=evidence, multipart "files" o "file"
func (h *UploadHandler) Upload(c *gin.Context) {
	folder := c.DefaultQuery("folder", "evidence")
	if !uploadFolders[folder] {
		BadRequest(c, "carpeta inválida: "+folder)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "No se pudo leer el formulario: "+err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		BadRequest(c, "No se recibieron archivos")
		return
	}

	uploaded := make([]*service.StoredFile, 0, len(files))
	for _, fh := range files {
		contentType := fh.Header.Get("Content-Type")
		if !service.IsImage(contentType) {
			Error(c, 40001, fh.Filename+" no es una imagen")
			return
		}
		if fh.Size > maxUploadSize {
			Error(c, 40001, fh.Filename+" excede 10MB")
			return
		}
		src, err := fh.Open()
		if err != nil {
			InternalError(c, "No se pudo leer el archivo "+fh.Filename)
			return
		}
		stored, err := h.storage.Upload(c.Request.Context(), folder, src, fh.Size, fh.Filename, contentType)
		src.Close()
		if err != nil {
			c.Error(err)
			InternalError(c, "No se pudo guardar el archivo "+fh.Filename)
			return
		}
		uploaded = append(uploaded, stored)
	}

	Success(c, uploaded)
}
