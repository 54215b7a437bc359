package request

// CreateDepositAddressRequest asks for the member's deposit address of a currency.
type CreateDepositAddressRequest struct {
	UID           string `json:"uid" binding:"required,owner_uid,max=32"`
	BlockchainKey string `json:"blockchain_key" binding:"required,max=64"`
	Currency      string `json:"currency" binding:"required,max=20"`
}

// CollectRequest picks what a manual collection job does.
type CollectRequest struct {
	Action string `json:"action" binding:"omitempty,oneof=auto collect refuel"`
}
