package model

// AllModels lists every table, used by sqlite tests and the dev-mode AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Blockchain{},
		&Currency{},
		&BlockchainCurrency{},
		&Wallet{},
		&Member{},
		&DepositAddress{},
		&Deposit{},
		&Collection{},
		&OutboxMessage{},
	}
}
