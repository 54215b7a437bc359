package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"deposit-collector/internal/handler/request"
	"deposit-collector/internal/handler/response"
	"deposit-collector/internal/service/address"
	"deposit-collector/pkg/errno"
	"deposit-collector/pkg/validator"
)

// AddressProducer is implemented by address.Service.
type AddressProducer interface {
	Produce(ctx context.Context, uid, blockchainKey, currency string) (*address.Result, error)
}

type AddressHandler struct {
	producer AddressProducer
}

func NewAddressHandler(producer AddressProducer) *AddressHandler {
	return &AddressHandler{producer: producer}
}

// CreateDepositAddress godoc
// @Summary Produce a deposit address
// @Description Returns the member's deposit address on the currency's blockchain, generating it on first use
// @Tags deposit_addresses
// @Accept  json
// @Produce  json
// @Param request body request.CreateDepositAddressRequest true "member and currency"
// @Success 200 {object} response.Response
// @Router /deposit_addresses [post]
func (h *AddressHandler) CreateDepositAddress(c *gin.Context) {
	var req request.CreateDepositAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	res, err := h.producer.Produce(c.Request.Context(), req.UID, req.BlockchainKey, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":      res.ID,
		"address": res.Address,
		"details": res.Details,
	})
}
