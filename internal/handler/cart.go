package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
)

// handleGetCart returns the session's cart, starting a session when there is none.
// GET /api/store/cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, token, err := h.store.GetCart(r.Context(), cartToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	setCartToken(w, r, token)
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, cart)
}

// handleAddItem adds an item to the session's cart.
// POST /api/store/cart/addItem
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req model.CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.countCartAdd("invalid")
		h.writeError(w, r, err)
		return
	}
	if err := h.validateRequest(&req); err != nil {
		h.countCartAdd("invalid")
		h.writeError(w, r, err)
		return
	}

	cart, token, err := h.store.AddItem(r.Context(), cartToken(r), req)
	// The store may have opened a session before refusing the item.
	setCartToken(w, r, token)
	if err != nil {
		h.countCartAdd("failed")
		h.writeError(w, r, err)
		return
	}

	h.countCartAdd("added")
	h.logger.InfoContext(r.Context(), "item added to cart",
		slog.Int("item_id", req.ID),
		slog.Int("quantity", req.Quantity),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusCreated, cart)
}
