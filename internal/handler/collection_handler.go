package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deposit-collector/internal/handler/request"
	"deposit-collector/internal/handler/response"
	"deposit-collector/internal/model"
	"deposit-collector/internal/service"
	"deposit-collector/internal/service/collection"
	"deposit-collector/pkg/errno"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/validator"
)

// AddressReader loads one deposit address.
type AddressReader interface {
	Get(ctx context.Context, id uint64) (*model.DepositAddress, error)
}

// CollectionHandler exposes collection state and manual jobs to operators.
type CollectionHandler struct {
	addresses AddressReader
	enqueuer  service.CollectionEnqueuer
}

func NewCollectionHandler(addresses AddressReader, enqueuer service.CollectionEnqueuer) *CollectionHandler {
	return &CollectionHandler{addresses: addresses, enqueuer: enqueuer}
}

// GetDepositAddress godoc
// @Summary Deposit address collection state
// @Tags deposit_addresses
// @Produce  json
// @Param id path int true "deposit address id"
// @Success 200 {object} response.Response
// @Router /deposit_addresses/{id} [get]
func (h *CollectionHandler) GetDepositAddress(c *gin.Context) {
	addr, ok := h.load(c)
	if !ok {
		return
	}
	response.Success(c, addr)
}

// EnqueueCollection godoc
// @Summary Enqueue a collection job
// @Description action auto collects when the address can pay its fee and refuels otherwise
// @Tags deposit_addresses
// @Accept  json
// @Produce  json
// @Param id path int true "deposit address id"
// @Param request body request.CollectRequest false "action"
// @Success 200 {object} response.Response
// @Router /deposit_addresses/{id}/collect [post]
func (h *CollectionHandler) EnqueueCollection(c *gin.Context) {
	var req request.CollectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
			return
		}
	}
	action := collection.Action(req.Action)
	if action == "" {
		action = collection.ActionAuto
	}

	addr, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.enqueuer.EnqueueCollection(c.Request.Context(), addr.ID, action); err != nil {
		logger.Error("enqueue collection failed", zap.Uint64("address_id", addr.ID), zap.Error(err))
		response.Error(c, errno.ErrQueue)
		return
	}
	response.Success(c, gin.H{"address_id": addr.ID, "action": action})
}

func (h *CollectionHandler) load(c *gin.Context) (*model.DepositAddress, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, errno.ErrBind.WithMessage("id must be a positive integer"))
		return nil, false
	}
	addr, err := h.addresses.Get(c.Request.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		response.Error(c, errno.ErrAddressNotFound)
		return nil, false
	}
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return nil, false
	}
	return addr, true
}
