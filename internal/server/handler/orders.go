package handler

import (
	"net/http"

	"restaurant-foh/internal/domain"
)

func (h *Handler) KitchenBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return
	}
	order, err := h.service.OrderByID(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return
	}
	var req domain.CreateOrderItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.service.AddItem(r.Context(), id, req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return
	}
	var req domain.UpdateOrderStatusRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.service.UpdateOrderStatus(r.Context(), id, req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order item id")
		return
	}
	var req domain.UpdateItemStatusRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.service.UpdateItemStatus(r.Context(), id, req.Status)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order item id")
		return
	}
	var req domain.CancelItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.service.CancelItem(r.Context(), id, req.Reason)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) PrintJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid order item id")
		return
	}
	jobs, err := h.service.PrintJobsByItem(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) RetryPrintJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid print job id")
		return
	}
	job, err := h.service.RetryPrintJob(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.Tables(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) TableOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid table id")
		return
	}
	orders, err := h.service.ActiveOrdersForTable(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
