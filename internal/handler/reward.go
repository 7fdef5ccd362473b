package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/evandyer/cleanloop/internal/auth"
	"github.com/evandyer/cleanloop/internal/ledger"
	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/store"
	"github.com/evandyer/cleanloop/internal/websocket"
)

type RewardHandler struct {
	rewards      *store.RewardStore
	transactions *store.TransactionStore
	ledger       *ledger.Service
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, ts *store.TransactionStore, ls *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, transactions: ts, ledger: ls, hub: hub, logger: logger}
}

// rewardEntry is a catalog row as presented to the client. The id-0 entry is
// the synthetic "redeem your whole balance" option, not a stored reward.
type rewardEntry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
}

// List returns the caller's redeemable options: their full balance first,
// then the active catalog.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	balance, err := h.ledger.UserBalance(userID)
	if err != nil {
		h.logger.Error("compute balance", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rewards")
		return
	}

	catalog, err := h.rewards.ListAvailable()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rewards")
		return
	}

	entries := []rewardEntry{{
		ID:          0,
		Name:        "Your Points",
		Description: "Redeem your earned points",
		PointCost:   balance,
	}}
	for _, rw := range catalog {
		entries = append(entries, rewardEntry{
			ID:          rw.ID,
			Name:        rw.Name,
			Description: rw.Description,
			PointCost:   rw.PointCost,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// Redeem spends points. Reward id 0 zeroes the wallet; a catalog id spends
// that reward's cost after a balance check.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	rewardID, err := parseIDParam(r)
	if err != nil || rewardID < 0 {
		writeError(w, http.StatusBadRequest, "invalid reward id")
		return
	}
	userID := auth.UserID(r.Context())

	balance, err := h.ledger.UserBalance(userID)
	if err != nil {
		h.logger.Error("compute balance", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem")
		return
	}

	var amount int
	var description string
	if rewardID == 0 {
		if balance <= 0 {
			writeError(w, http.StatusBadRequest, "no points to redeem")
			return
		}
		amount = balance
		description = "Redeemed all points"
	} else {
		reward, err := h.rewards.GetByID(rewardID)
		if err != nil {
			h.logger.Error("get reward", "reward_id", rewardID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to redeem")
			return
		}
		if reward == nil || !reward.Active {
			writeError(w, http.StatusNotFound, "reward not found")
			return
		}
		if balance < reward.PointCost {
			writeError(w, http.StatusBadRequest, "insufficient points")
			return
		}
		amount = reward.PointCost
		description = fmt.Sprintf("Redeemed: %s", reward.Name)
	}

	tx, err := h.transactions.Append(userID, model.KindRedeemed, amount, description)
	if err != nil {
		h.logger.Error("append redemption", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem")
		return
	}

	h.hub.NotifyUser(userID, websocket.NewMessage("balance", "changed", 0, nil))
	writeJSON(w, http.StatusCreated, tx)
}

// Balance returns the caller's current wallet balance.
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	balance, err := h.ledger.UserBalance(userID)
	if err != nil {
		h.logger.Error("compute balance", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

// Transactions returns the caller's recent ledger history.
func (h *RewardHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	txs, err := h.ledger.History(userID, parseLimit(r, 10))
	if err != nil {
		h.logger.Error("list transactions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// Leaderboard ranks all users by lifetime earned points.
func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.ledger.Standings()
	if err != nil {
		h.logger.Error("build leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}
	if standings == nil {
		standings = []ledger.Standing{}
	}
	writeJSON(w, http.StatusOK, standings)
}
