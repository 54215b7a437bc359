package address

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
	"deposit-collector/pkg/cache"
	"deposit-collector/pkg/errno"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/safe_random"
	"deposit-collector/pkg/utils/lock"
)

const (
	cacheTTL = time.Hour
	lockTTL  = 30 * time.Second
)

// AccountCreator creates node-managed accounts.
type AccountCreator interface {
	NewAccount(ctx context.Context, secret string) (string, error)
}

// Accounts resolves the account creator of a blockchain.
type Accounts interface {
	Accounts(blockchainID uint64) (AccountCreator, error)
}

type Members interface {
	FindByUID(ctx context.Context, uid string) (*model.Member, error)
}

type Addresses interface {
	FindOrCreatePlaceholder(ctx context.Context, memberID, blockchainID uint64) (*model.DepositAddress, error)
	SetGenerated(ctx context.Context, addr *model.DepositAddress) error
}

// Result is what the management boundary receives.
type Result struct {
	ID      uint64        `json:"id"`
	Address string        `json:"address"`
	Secret  string        `json:"-"`
	Details model.JSONMap `json:"details"`
}

// cachedResult keeps the secret, which Result never serializes.
type cachedResult struct {
	ID      uint64        `json:"id"`
	Address string        `json:"address"`
	Secret  string        `json:"secret"`
	Details model.JSONMap `json:"details"`
}

// Service produces deposit addresses, one per member and blockchain.
type Service struct {
	catalog   *model.Catalog
	members   Members
	addresses Addresses
	accounts  Accounts
	locker    lock.DistributedLock
	cache     cache.Cache
	now       func() time.Time
}

func NewService(catalog *model.Catalog, members Members, addresses Addresses, accounts Accounts, locker lock.DistributedLock, c cache.Cache) *Service {
	return &Service{
		catalog:   catalog,
		members:   members,
		addresses: addresses,
		accounts:  accounts,
		locker:    locker,
		cache:     c,
		now:       time.Now,
	}
}

// Produce returns the member's address on the currency's blockchain, generating it on first use.
// Failures are errno values: deposit_disabled, wallet_not_found or generation_failed.
func (s *Service) Produce(ctx context.Context, uid, blockchainKey, currencyCode string) (*Result, error) {
	// 1. configuration
	chain, err := s.catalog.BlockchainByKey(blockchainKey)
	if err != nil {
		return nil, errno.ErrBlockchainNotFound
	}
	currency, err := s.catalog.Currency(chain.ID, currencyCode)
	if err != nil {
		return nil, errno.ErrCurrencyNotFound
	}
	if !currency.DepositEnabled {
		return nil, errno.ErrDepositDisabled
	}
	wallet, err := s.catalog.WalletOfKind(chain.ID, model.WalletKindDeposit)
	if err != nil {
		return nil, errno.ErrWalletNotFound
	}

	cacheKey := fmt.Sprintf("deposit_address:%s:%s", uid, blockchainKey)
	var cached cachedResult
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached.Address != "" {
		return &Result{ID: cached.ID, Address: cached.Address, Secret: cached.Secret, Details: cached.Details}, nil
	}

	member, err := s.members.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, errno.ErrMemberNotFound
		}
		return nil, errno.ErrDatabase
	}

	// 2. one generation per member and blockchain at a time
	lockKey := "address:generate:" + strconv.FormatUint(member.ID, 10) + ":" + strconv.FormatUint(chain.ID, 10)
	locked, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil || !locked {
		return nil, errno.ErrGenerationFailed.WithMessage("generation_failed: address generation in progress")
	}
	defer func() {
		if err := s.locker.Release(context.Background(), lockKey); err != nil {
			logger.Warn("release address lock failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	addr, err := s.addresses.FindOrCreatePlaceholder(ctx, member.ID, chain.ID)
	if err != nil {
		return nil, errno.ErrDatabase
	}

	// 3. node account behind a fresh secret
	if addr.Address == nil {
		if err := s.generate(ctx, chain, wallet, addr); err != nil {
			logger.Error("deposit address generation failed",
				zap.String("uid", uid),
				zap.String("blockchain", chain.Key),
				zap.Error(err),
			)
			return nil, errno.ErrGenerationFailed
		}
	}

	res := &Result{ID: addr.ID, Address: addr.AddressString(), Secret: addr.Secret, Details: addr.Details}
	entry := cachedResult{ID: res.ID, Address: res.Address, Secret: res.Secret, Details: res.Details}
	if err := s.cache.Set(ctx, cacheKey, entry, cacheTTL); err != nil {
		logger.Warn("cache deposit address failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return res, nil
}

func (s *Service) generate(ctx context.Context, chain model.Blockchain, wallet model.Wallet, addr *model.DepositAddress) error {
	creator, err := s.accounts.Accounts(chain.ID)
	if err != nil {
		return err
	}
	secret, err := safe_random.GenerateSecret()
	if err != nil {
		return err
	}
	account, err := creator.NewAccount(ctx, secret)
	if err != nil {
		return err
	}
	if account == "" {
		return errors.New("node returned an empty address")
	}

	addr.SetAddress(account)
	addr.Secret = secret
	addr.Details = model.JSONMap{
		"wallet_id":    wallet.ID,
		"generated_at": s.now().UTC().Format(time.RFC3339),
	}
	if err := s.addresses.SetGenerated(ctx, addr); err != nil {
		return err
	}
	logger.Info("deposit address generated",
		zap.Uint64("address_id", addr.ID),
		zap.String("blockchain", chain.Key),
		zap.String("address", addr.AddressString()),
	)
	return nil
}

type registryAccounts struct {
	registry *ethereum.Registry
}

// FromRegistry exposes the node clients as account creators.
func FromRegistry(r *ethereum.Registry) Accounts {
	return registryAccounts{registry: r}
}

func (a registryAccounts) Accounts(blockchainID uint64) (AccountCreator, error) {
	c, err := a.registry.Client(blockchainID)
	if err != nil {
		return nil, err
	}
	return c, nil
}
