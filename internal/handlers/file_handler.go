package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20

// FileHandler stores project deliverables under UploadDir and records them
// in the project_files table.
type FileHandler struct {
	Store     *state.Store
	Mutator   *services.Mutator
	UploadDir string
}

func NewFileHandler(store *state.Store, mutator *services.Mutator, uploadDir string) *FileHandler {
	return &FileHandler{Store: store, Mutator: mutator, UploadDir: uploadDir}
}

// GET /files
func (h *FileHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	files := visibleFiles(u, h.Store.Snapshot())
	if files == nil {
		files = []models.ProjectFile{}
	}
	writeData(w, files)
}

// POST /projects/{id}/files (multipart, field "file")
func (h *FileHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	if !scope.CanSeeProject(u, projectID, h.Store.Snapshot()) {
		writeError(w, services.ErrForbidden, services.Result{})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer file.Close()

	stored := uuid.NewString() + filepath.Ext(header.Filename)
	size, err := h.save(stored, file)
	if err != nil {
		log.WithError(err).Error("Failed to save upload")
		toast := notify.Error("Failed to upload file")
		writeJSON(w, http.StatusInternalServerError, nil, &toast)
		return
	}

	row := models.ProjectFile{
		ProjectID: projectID,
		Name:      filepath.Base(header.Filename),
		URL:       "/uploads/" + stored,
		Size:      size,
	}
	res, err := h.Mutator.Submit(r.Context(), u, &services.Create[models.ProjectFile]{Row: row})
	if err != nil {
		if rmErr := os.Remove(filepath.Join(h.UploadDir, stored)); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove orphaned upload")
		}
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusCreated, res.Deltas[0].Row, res)
}

// DELETE /files/{id}. The stored bytes are removed after the row is gone.
func (h *FileHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	var url string
	for _, f := range h.Store.Snapshot().Files {
		if f.ID == id {
			url = f.URL
		}
	}

	res, err := h.Mutator.Submit(r.Context(), u, &services.Delete[models.ProjectFile]{ID: id})
	if err != nil {
		writeError(w, err, res)
		return
	}
	if url != "" {
		if err := os.Remove(filepath.Join(h.UploadDir, filepath.Base(url))); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("fileID", id.Hex()).Warn("Failed to remove stored file")
		}
	}
	writeResult(w, http.StatusOK, nil, res)
}

// GET /uploads/{name}. Only users who can see the file's project may download it.
func (h *FileHandler) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	name := filepath.Base(mux.Vars(r)["name"])
	snap := h.Store.Snapshot()

	var file models.ProjectFile
	found := false
	for _, f := range snap.Files {
		if f.URL == "/uploads/"+name {
			file, found = f, true
			break
		}
	}
	if !found {
		writeError(w, services.ErrNotFound, services.Result{})
		return
	}
	if !scope.CanSeeProject(u, file.ProjectID, snap) {
		log.WithFields(log.Fields{
			"userID": u.ID.Hex(),
			"fileID": file.ID.Hex(),
		}).Warn("File download denied")
		writeError(w, services.ErrForbidden, services.Result{})
		return
	}
	http.ServeFile(w, r, filepath.Join(h.UploadDir, name))
}

func (h *FileHandler) save(name string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create upload dir: %w", err)
	}
	out, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	return copyAndClose(out, src)
}

// copyAndClose copies src into dst and closes it. A failed close fails the copy.
func copyAndClose(dst io.WriteCloser, src io.Reader) (int64, error) {
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	return n, err
}
