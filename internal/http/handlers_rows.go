package http

import (
	"net/http"

	"billtrack/internal/core"
)

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows.ListRows(r.Context())
	if err != nil {
		fail(w, r, "list rows", err)
		return
	}
	if rows == nil {
		rows = []core.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	row, err := s.rows.GetRow(r.Context(), rowID(r))
	if err != nil {
		fail(w, r, "get row", err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	var p core.RowPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.rows.CreateRow(r.Context(), p)
	if err != nil {
		fail(w, r, "create row", err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var p core.RowPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	row, err := s.rows.UpdateRow(r.Context(), rowID(r), p)
	if err != nil {
		fail(w, r, "update row", err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	if err := s.rows.DeleteRow(r.Context(), rowID(r)); err != nil {
		fail(w, r, "delete row", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	entries, err := s.rows.ListPrices(r.Context(), rowID(r))
	if err != nil {
		fail(w, r, "list prices", err)
		return
	}
	if entries == nil {
		entries = []core.PriceEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	var e core.PriceEntry
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.rows.AddPrice(r.Context(), rowID(r), e)
	if err != nil {
		fail(w, r, "add price", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDeletePrice(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.rows.DeletePrice(r.Context(), rowID(r), index); err != nil {
		fail(w, r, "delete price", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
