package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"contas/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.contas.List(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleList returns bills, optionally scoped to a month and narrowed by
// the list-view filters (bank, status, search).
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	bills, err := s.contas.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	query := r.URL.Query()
	today := s.now()

	if query.Get("year") != "" || query.Get("month") != "" {
		mp := ParseMonthParams(query)
		bills = services.FilterMonth(bills, mp.Year, mp.Month)
	}

	opts := services.FilterOptions{
		Bank:   query.Get("bank"),
		Search: query.Get("search"),
	}
	if st := query.Get("status"); st != "" {
		opts.Status = statusParam(st)
	}
	bills = services.Filter(bills, opts, today)
	services.SortByDueDate(bills)

	respondList(w, toBillListJSON(bills, today), len(bills))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	bill, err := s.contas.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toBillJSON(bill, s.now()))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	saved, err := s.contas.Create(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toBillJSON(saved, s.now()))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	saved, err := s.contas.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, toBillJSON(saved, s.now()))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.contas.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, nil, "conta removida")
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	common, installments, err := req.toInputs()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	saved, err := s.contas.CreateGroup(r.Context(), common, installments)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toBillListJSON(saved, s.now()))
}

// handlePay marks a bill paid with the requested cascade policy. A partial
// cascade still reports what was applied alongside the error.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	policy, err := req.toPolicy()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	today := s.now()
	result, err := s.contas.Pay(r.Context(), r.PathValue("id"), policy, today)
	if err != nil {
		if len(result.DeletedIDs) > 0 || result.Paid.ID != "" {
			writeJSON(w, statusFor(err), envelope{
				Success: false,
				Error:   err.Error(),
				Data:    payResultJSON(result, today),
			})
			return
		}
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, payResultJSON(result, today))
}

func payResultJSON(res services.CascadeResult, today time.Time) map[string]any {
	return map[string]any{
		"paid":        toBillJSON(res.Paid, today),
		"deleted_ids": res.DeletedIDs,
	}
}

// handleDashboard returns the month aggregation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	bills, err := s.contas.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	mp := ParseMonthParams(r.URL.Query())
	stats := services.Aggregate(bills, mp.Year, mp.Month, s.now())

	respondData(w, http.StatusOK, map[string]any{
		"year":           mp.Year,
		"month":          mp.Month,
		"total":          stats.Total,
		"paid_count":     stats.PaidCount,
		"overdue_count":  stats.OverdueCount,
		"imminent_count": stats.ImminentCount,
		"pending_count":  stats.PendingCount,
		"total_cents":    stats.TotalCents,
		"paid_cents":     stats.PaidCents,
		"pending_cents":  stats.PendingCents,
	})
}
