package event

// Topics
const (
	TopicDepositNotifications = "deposit.notifications"
	TopicDepositDispatched    = "deposit.dispatched"
	TopicCollectionEvents     = "collection.events"
)

// DepositNotification is published by the chain observer.
// Topic: deposit.notifications
type DepositNotification struct {
	OwnerID       string `json:"owner_id"` // "user:<uid>"
	BlockchainKey string `json:"blockchain_key"`
	FromAddress   string `json:"from_address"`
	ToAddress     string `json:"to_address"`
	TxID          string `json:"txid"`
	TxOut         int    `json:"txout"`
	Amount        string `json:"amount"` // decimal string in currency units
	Currency      string `json:"currency"`
	Confirmations int    `json:"confirmations"`
}

// DepositDispatchedEvent tells downstream ledgers to credit the member.
// Topic: deposit.dispatched
type DepositDispatchedEvent struct {
	DepositID     uint64 `json:"deposit_id"`
	MemberUID     string `json:"member_uid"`
	BlockchainKey string `json:"blockchain_key"`
	Currency      string `json:"currency"`
	TxID          string `json:"txid"`
	TxOut         int    `json:"txout"`
	Amount        string `json:"amount"` // base units
}

// CollectionEvent records a submitted sweep or refuel transaction.
// Topic: collection.events
type CollectionEvent struct {
	Kind          string `json:"kind"` // collect | refuel
	AddressID     uint64 `json:"address_id"`
	BlockchainKey string `json:"blockchain_key"`
	TxID          string `json:"txid"`
	Currency      string `json:"currency"`
	Amount        string `json:"amount"` // base units
	From          string `json:"from"`
	To            string `json:"to"`
}
