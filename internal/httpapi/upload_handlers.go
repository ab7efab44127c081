package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

const maxUploadMemory = 1 << 20

// uploadAvatar accepts a multipart form upload, stores it via
// internal/uploads and sets it as the caller's uploadedAvatar, which the
// fan-out dispatcher's `user` scope trigger table (spec §4.11) surfaces as
// an accountUpdate.
func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErr(w, apperr.Precondition("Upload Error", "malformed multipart form"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeErr(w, apperr.Precondition("Upload Error", "missing avatar field"))
		return
	}
	defer file.Close()

	ref, err := s.uploads.Save(filepath.Ext(header.Filename), file)
	if err != nil {
		writeErr(w, err)
		return
	}

	var u model.User
	prevRef := ""
	if err := s.st.Read(r.Context(), collUsers, userID, &u); err == nil {
		prevRef = u.Profile.UploadedAvatar
	}

	if err := s.st.Update(r.Context(), collUsers, userID, store.Patch{
		Set: map[string]any{"profile.uploadedAvatar": ref},
	}); err != nil {
		s.uploads.Delete(ref)
		writeErr(w, apperr.Internal("Upload Error", err))
		return
	}

	s.uploads.Delete(prevRef)
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}
