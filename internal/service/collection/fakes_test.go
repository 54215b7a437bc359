package collection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
	"deposit-collector/pkg/utils/lock"
)

const (
	testChainID   = 1
	testAddressID = 7
	testAddress   = "0xdeposit"
	testToken     = "0xtoken"
)

func u64(v uint64) *uint64 { return &v }
func str(v string) *string { return &v }

func testCatalog() *model.Catalog {
	return model.NewCatalog(
		[]model.Blockchain{{
			ID:               testChainID,
			Key:              "eth-testnet",
			MinConfirmations: 6,
			GasFactor:        decimal.RequireFromString("1.05"),
			FeeWalletID:      10,
			HotWalletID:      11,
			Status:           model.BlockchainActive,
		}},
		[]model.BlockchainCurrency{
			{ID: 1, BlockchainID: testChainID, CurrencyCode: "eth", Decimals: 18, GasLimit: u64(21000)},
			{
				ID: 2, BlockchainID: testChainID, CurrencyCode: "usdt", Decimals: 6,
				ContractAddress:     str(testToken),
				GasLimit:            u64(90000),
				MinDepositAmount:    decimal.NewFromInt(500),
				MinCollectionAmount: decimal.NewFromInt(1000),
			},
		},
		[]model.Wallet{
			{ID: 10, BlockchainID: testChainID, Kind: model.WalletKindFee, Address: "0xfee", Secret: "fee-secret", Status: "active"},
			{ID: 11, BlockchainID: testChainID, Kind: model.WalletKindHot, Address: "0xhot", Status: "active"},
		},
	)
}

// memChain is a node whose balances follow the transactions sent to it.
// With pending set, sent transactions stay in the mempool and balances never move,
// which is what a real node reports at the latest block right after a send.
type memChain struct {
	pending  bool
	mu       sync.Mutex
	gasPrice decimal.Decimal
	balances map[string]decimal.Decimal // address|contract
	sent     []ethereum.Transfer
	sendErr  error
	seq      int
}

func newMemChain(gasPrice int64) *memChain {
	return &memChain{gasPrice: decimal.NewFromInt(gasPrice), balances: map[string]decimal.Decimal{}}
}

func balanceKey(address, contract string) string {
	return strings.ToLower(address) + "|" + strings.ToLower(contract)
}

func (c *memChain) set(address, contract string, v int64) {
	c.mu.Lock()
	c.balances[balanceKey(address, contract)] = decimal.NewFromInt(v)
	c.mu.Unlock()
}

func (c *memChain) get(address, contract string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[balanceKey(address, contract)]
}

func (c *memChain) transfers() []ethereum.Transfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ethereum.Transfer(nil), c.sent...)
}

func (c *memChain) GasPrice(context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gasPrice, nil
}

func (c *memChain) Balance(_ context.Context, address, contract string) (decimal.Decimal, error) {
	return c.get(address, contract), nil
}

func (c *memChain) Send(_ context.Context, t ethereum.Transfer) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, t)
	c.seq++
	txid := "0xtx" + decimal.NewFromInt(int64(c.seq)).String()
	if c.pending {
		return txid, nil
	}

	fee := t.GasPrice.Mul(decimal.NewFromInt(int64(t.GasLimit)))
	from := balanceKey(t.From, "")
	c.balances[from] = c.balances[from].Sub(fee)
	src, dst := balanceKey(t.From, t.Contract), balanceKey(t.To, t.Contract)
	c.balances[src] = c.balances[src].Sub(t.Amount)
	c.balances[dst] = c.balances[dst].Add(t.Amount)
	return txid, nil
}

type oneGateway struct{ gw Gateway }

func (g oneGateway) Gateway(id uint64) (Gateway, error) {
	if id != testChainID {
		return nil, model.ErrUnknownBlockchain
	}
	return g.gw, nil
}

// memStore keeps addresses in memory; WithLockedAddress serializes per id and
// only commits when fn succeeds.
type memStore struct {
	mu          sync.Mutex
	rows        map[uint64]model.DepositAddress
	rowLocks    map[uint64]*sync.Mutex
	collections []model.Collection
	outbox      []string
}

func newMemStore(addrs ...model.DepositAddress) *memStore {
	s := &memStore{rows: map[uint64]model.DepositAddress{}, rowLocks: map[uint64]*sync.Mutex{}}
	for _, a := range addrs {
		s.rows[a.ID] = a
		s.rowLocks[a.ID] = &sync.Mutex{}
	}
	return s
}

func (s *memStore) row(id uint64) model.DepositAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *memStore) Get(_ context.Context, id uint64) (*model.DepositAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &a, nil
}

func (s *memStore) UpdateBalances(_ context.Context, id uint64, balances model.BalanceMap, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.rows[id]
	a.Balances = balances
	a.BalancesUpdatedAt = &at
	s.rows[id] = a
	return nil
}

func (s *memStore) WithLockedAddress(_ context.Context, id uint64, fn func(AddressTx, *model.DepositAddress) error) error {
	s.mu.Lock()
	rowLock, ok := s.rowLocks[id]
	s.mu.Unlock()
	if !ok {
		return errors.New("not found")
	}
	rowLock.Lock()
	defer rowLock.Unlock()

	addr := s.row(id)
	tx := &memTx{}
	if err := fn(tx, &addr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.saved != nil {
		s.rows[id] = *tx.saved
	}
	s.collections = append(s.collections, tx.collections...)
	s.outbox = append(s.outbox, tx.outbox...)
	return nil
}

type memTx struct {
	saved       *model.DepositAddress
	collections []model.Collection
	outbox      []string
}

func (t *memTx) SaveCollectionState(addr *model.DepositAddress) error {
	cp := *addr
	t.saved = &cp
	return nil
}

func (t *memTx) RecordCollection(c *model.Collection) error {
	t.collections = append(t.collections, *c)
	return nil
}

func (t *memTx) AppendOutbox(topic, key string, _ interface{}) error {
	t.outbox = append(t.outbox, topic+"/"+key)
	return nil
}

type fixture struct {
	chain   *memChain
	store   *memStore
	locker  *lock.LocalLock
	policy  *Policy
	machine *StateMachine
	runner  *Runner
}

func newFixture(state model.CollectionState) *fixture {
	catalog := testCatalog()
	chain := newMemChain(1)
	gateways := oneGateway{gw: chain}
	store := newMemStore(model.DepositAddress{
		ID:              testAddressID,
		MemberID:        1,
		BlockchainID:    testChainID,
		Address:         str(testAddress),
		Secret:          "deposit-secret",
		CollectionState: state,
	})
	locker := lock.NewLocalLock()
	policy := NewPolicy(gateways)
	machine := NewStateMachine(store, catalog, NewCollector(policy, gateways), NewRefueler(policy, gateways, locker, time.Minute), 5*time.Minute)
	return &fixture{
		chain:   chain,
		store:   store,
		locker:  locker,
		policy:  policy,
		machine: machine,
		runner:  NewRunner(store, catalog, policy, machine),
	}
}

func (f *fixture) target() Target {
	t, err := TargetFor(testCatalog(), &model.DepositAddress{ID: testAddressID, BlockchainID: testChainID, Address: str(testAddress)})
	if err != nil {
		panic(err)
	}
	return t
}
