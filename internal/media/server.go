package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"contentflow/internal/common"
	"contentflow/internal/config"
	"contentflow/internal/logger"
)

// HTTPServer serves stored media by mediaRef and accepts authenticated uploads.
type HTTPServer struct {
	storage   common.MediaStore
	maxUpload int64
	router    *mux.Router
}

func NewHTTPServer(storage common.MediaStore, secret []byte, cfg config.ServerConfig) *HTTPServer {
	s := &HTTPServer{
		storage:   storage,
		maxUpload: int64(cfg.MaxUploadMB) << 20,
	}

	router := mux.NewRouter()
	router.Use(common.RequestIDMiddleware)
	router.HandleFunc("/media/{ref}", s.serveFile).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/media", common.HTTPAuthMiddleware(secret)(http.HandlerFunc(s.upload))).Methods(http.MethodPost)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router = router
	return s
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	fileReader, mediaFile, err := s.storage.Download(r.Context(), ref)
	if err != nil {
		if !common.IsNotFound(err) {
			logger.WithContext(r.Context()).WithError(err).WithField("media_ref", ref).Error("media download failed")
		}
		common.WriteError(w, err)
		return
	}
	defer fileReader.Close()

	contentType := mediaFile.ContentType
	if contentType == "" {
		contentType = getContentType(mediaFile.Filename)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", mediaFile.Size))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := io.Copy(w, fileReader); err != nil {
		logger.WithContext(r.Context()).WithError(err).WithField("media_ref", ref).Warn("error streaming file")
	}
}

// upload takes a multipart form with a single "file" part and answers 201 with the stored MediaFile.
func (s *HTTPServer) upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := common.ActorFromContext(r.Context())
	if !ok {
		common.WriteErrorBody(w, http.StatusUnauthorized, "unauthenticated", "authorization required")
		return
	}
	if actor.Role == common.RoleUser {
		common.WriteError(w, &common.PermissionError{Role: actor.Role, Action: "upload media"})
		return
	}

	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(w, common.NewValidationError("file", "exceeds %d bytes", s.maxUpload))
			return
		}
		common.WriteError(w, common.NewValidationError("file", "multipart field is required"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = getContentType(header.Filename)
	}
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}
	if !strings.HasPrefix(mimeType, "image/") && !strings.HasPrefix(mimeType, "video/") {
		common.WriteError(w, common.NewValidationError("file", "unsupported media type %s", mimeType))
		return
	}

	stored, err := s.storage.Upload(r.Context(), filepath.Base(header.Filename), mimeType, actor.UserID, file)
	if err != nil {
		logger.WithContext(r.Context()).WithError(err).Error("media upload failed")
		common.WriteError(w, err)
		return
	}
	logger.AuditEntry(r.Context()).WithFields(map[string]interface{}{
		"media_ref": stored.ID,
		"size":      stored.Size,
		"file_type": stored.FileType,
	}).Info("media uploaded")
	common.WriteJSON(w, http.StatusCreated, stored)
}

func getContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "media"})
}
