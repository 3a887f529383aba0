package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/cotravels/internal/models"
	"github.com/HammerMeetNail/cotravels/internal/services"
)

type BlockHandler struct {
	blockService services.BlockServiceInterface
}

func NewBlockHandler(blockService services.BlockServiceInterface) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

type BlockListResponse struct {
	Blocked []models.BlockedUser `json:"blocked"`
}

func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blockedID, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}

	if err := h.blockService.Block(r.Context(), user.ID, blockedID); err != nil {
		writeServiceError(w, r, "block_user", err)
		return
	}

	writeMessage(w, http.StatusCreated, "User blocked")
}

func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blockedID, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}

	if err := h.blockService.Unblock(r.Context(), user.ID, blockedID); err != nil {
		writeServiceError(w, r, "unblock_user", err)
		return
	}

	writeMessage(w, http.StatusOK, "User unblocked")
}

func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blocked, err := h.blockService.ListBlocked(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, "list_blocked", err)
		return
	}

	writeJSON(w, http.StatusOK, BlockListResponse{Blocked: blocked})
}
