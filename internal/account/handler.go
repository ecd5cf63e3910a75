package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/re4388/event-sourcing0/internal/eventstore"
	"github.com/re4388/event-sourcing0/internal/readmodel"
)

// Handler exposes account command and query endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	AccountID      string          `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Create opens a new account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	record, err := h.service.CreateAccount(c.UserContext(), req.AccountID, req.InitialBalance)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(stateJSON(record))
}

// Deposit adds funds to an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	record, err := h.service.Deposit(c.UserContext(), c.Params("id"), req.Amount)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(stateJSON(record))
}

// Withdraw removes funds from an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	record, err := h.service.Withdraw(c.UserContext(), c.Params("id"), req.Amount)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(stateJSON(record))
}

// State answers a current-state query from the read model.
func (h *Handler) State(c *fiber.Ctx) error {
	record, err := h.service.GetState(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(stateJSON(record))
}

// Events returns the account's full event history.
func (h *Handler) Events(c *fiber.Ctx) error {
	history, err := h.service.GetHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}

	out := make([]fiber.Map, 0, len(history))
	for _, ev := range history {
		out = append(out, eventJSON(ev))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// RebuildReadModels reprojects every account from its event stream.
func (h *Handler) RebuildReadModels(c *fiber.Ctx) error {
	count, err := h.service.RebuildReadModels(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": count})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ErrAlreadyExists):
		return fiber.NewError(http.StatusConflict, "account already exists")
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return fiber.NewError(http.StatusConflict, "concurrent modification, retry with fresh state")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func stateJSON(record readmodel.Record) fiber.Map {
	return fiber.Map{
		"account_id": record.AccountID,
		"balance":    record.Balance,
		"version":    record.Version,
	}
}

func eventJSON(ev eventstore.Event) fiber.Map {
	out := fiber.Map{
		"version":   ev.Version,
		"timestamp": ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	switch p := ev.Payload.(type) {
	case eventstore.AccountCreated:
		out["type"] = eventstore.TypeAccountCreated
		out["initial_balance"] = p.InitialBalance
	case eventstore.MoneyDeposited:
		out["type"] = eventstore.TypeMoneyDeposited
		out["amount"] = p.Amount
	case eventstore.MoneyWithdrawn:
		out["type"] = eventstore.TypeMoneyWithdrawn
		out["amount"] = p.Amount
	}
	return out
}
