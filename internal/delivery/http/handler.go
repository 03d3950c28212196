package http

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"coupondrop/internal/domain"
	"coupondrop/internal/usecase"
)

// CookieName holds the identity token minted for first-time visitors.
const CookieName = "coupon_claim"

const cookieMaxAgeSeconds = 3600

type ClaimRequest struct {
	CouponCode string `json:"couponCode"`
}

type MessageResponse struct {
	Message       string `json:"message"`
	Code          string `json:"code,omitempty"`
	TimeRemaining int64  `json:"timeRemaining,omitempty"`
}

type Handler struct {
	gateway usecase.CouponGateway
}

func NewHandler(gateway usecase.CouponGateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/claim", h.ClaimCoupon)
		r.Get("/coupon", h.ListCoupons)
	})
}

func (h *Handler) ClaimCoupon(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Please select a valid coupon."})
		return
	}

	identity := domain.Identity{
		IP:     clientIP(r),
		Cookie: cookieToken(r),
	}

	code, err := h.gateway.ClaimCoupon(r.Context(), identity, req.CouponCode)
	if err != nil {
		var rl *domain.RateLimitedError
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Please select a valid coupon."})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, MessageResponse{Message: "Coupon not available or already claimed."})
		case errors.As(err, &rl):
			writeJSON(w, http.StatusTooManyRequests, MessageResponse{
				Message:       "You must wait before claiming again.",
				TimeRemaining: rl.TimeRemaining,
			})
		default:
			log.Printf("claim failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Server error"})
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   CookieName,
		Value:  identity.Cookie,
		Path:   "/",
		MaxAge: cookieMaxAgeSeconds,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Coupon claimed!", Code: code})
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	search := r.URL.Query().Get("search")

	result, err := h.gateway.ListCoupons(r.Context(), page, search)
	if err != nil {
		log.Printf("list coupons failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Error fetching coupons"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// cookieToken returns the visitor's identity token, minting a fresh
// one when the cookie is absent. The mint alone never blocks a claim;
// denial is decided by the rate limiter across both identity facets.
func cookieToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return uuid.NewString()
}

// clientIP expects middleware.RealIP to have already resolved proxy
// headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
