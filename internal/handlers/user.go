package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

const pictureFormField = "file"

type UserHandler struct {
	userService services.UserServiceInterface
}

func NewUserHandler(userService services.UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

type ProfileResponse struct {
	User models.UserSummary `json:"user"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// Get returns the public view of another user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer := GetUserFromContext(r.Context())
	if viewer == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	if id == viewer.ID {
		writeJSON(w, http.StatusOK, UserResponse{User: viewer})
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get_user", err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user.Summary()})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var patch models.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.userService.Update(r.Context(), user.ID, patch)
	if err != nil {
		writeServiceError(w, r, "update_me", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: updated})
}

// UploadPicture accepts a multipart form with the image in the "file" field.
func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxProfilePictureBytes+maxJSONBodyBytes)
	file, _, err := r.FormFile(pictureFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, services.Message(services.ErrImageTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxProfilePictureBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	updated, err := h.userService.SetProfilePicture(r.Context(), user.ID, data)
	if err != nil {
		writeServiceError(w, r, "upload_profile_picture", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: updated})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}
