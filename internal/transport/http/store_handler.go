package http

import (
	"net/http"
)

func (a *api) listCosmetics(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Store.Cosmetics(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) listAdvantages(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Store.Advantages(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) inventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Store.Inventory(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// purchases lists the caller's advantages; ?unused=true hides consumed ones.
func (a *api) purchases(w http.ResponseWriter, r *http.Request) {
	unusedOnly := r.URL.Query().Get("unused") == "true"
	items, err := a.svc.Store.Purchases(r.Context(), principal(r).UserID, unusedOnly)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) buyCosmetic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	item, err := a.svc.Store.BuyCosmetic(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *api) buyAdvantage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	purchase, err := a.svc.Store.BuyAdvantage(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

func (a *api) useAdvantage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	purchase, err := a.svc.Store.MarkAdvantageUsed(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}

func (a *api) activateCosmetic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	item, err := a.svc.Store.ActivateCosmetic(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
