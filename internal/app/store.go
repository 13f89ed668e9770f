package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quiz-play-service/internal/domain"
)

// StoreService sells cosmetics and advantages against the points ledger.
type StoreService struct {
	uow    UnitOfWork
	ledger *Ledger
	now    func() time.Time
	logger *slog.Logger
}

func NewStoreService(uow UnitOfWork, ledger *Ledger, opts ...Option) *StoreService {
	o := buildOptions(opts)
	return &StoreService{uow: uow, ledger: ledger, now: o.now, logger: o.logger}
}

// BuyCosmetic debits the cosmetic's cost and adds it, inactive, to the user's inventory.
func (s *StoreService) BuyCosmetic(ctx context.Context, userID, cosmeticID int64) (domain.InventoryItem, error) {
	var (
		item domain.InventoryItem
		acct domain.PointsAccount
	)
	err := s.ledger.transact(ctx, func(ctx context.Context, r Repositories) error {
		cosmetic, err := r.Cosmetics().FindByID(ctx, cosmeticID)
		if err != nil {
			return err
		}
		acct, err = s.ledger.debit(ctx, r, userID, cosmetic.Cost)
		if err != nil {
			return err
		}
		item = domain.InventoryItem{
			UserID:     userID,
			CosmeticID: cosmetic.ID,
			Slot:       cosmetic.Type,
			AcquiredAt: s.now(),
		}
		return r.Inventory().Create(ctx, &item)
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.ledger.publish(acct)
	s.logger.Info("cosmetic purchased", "user_id", userID, "cosmetic_id", cosmeticID, "balance", acct.TotalPoints)
	return item, nil
}

// ActivateCosmetic makes an owned item the only active one of its slot.
func (s *StoreService) ActivateCosmetic(ctx context.Context, userID, itemID int64) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.ledger.transact(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		item, err = r.Inventory().FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.UserID != userID {
			return domain.ErrNotOwner
		}
		current, ok, err := r.Inventory().FindActive(ctx, userID, item.Slot)
		if err != nil {
			return err
		}
		if ok && current.ID != item.ID {
			current.Active = false
			if err := r.Inventory().Update(ctx, current); err != nil {
				return err
			}
		}
		if item.Active {
			return nil
		}
		item.Active = true
		return r.Inventory().Update(ctx, item)
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// BuyAdvantage debits the advantage's cost and records an unused purchase.
func (s *StoreService) BuyAdvantage(ctx context.Context, userID, advantageID int64) (domain.AdvantagePurchase, error) {
	var (
		purchase domain.AdvantagePurchase
		acct     domain.PointsAccount
	)
	err := s.ledger.transact(ctx, func(ctx context.Context, r Repositories) error {
		advantage, err := r.Advantages().FindByID(ctx, advantageID)
		if err != nil {
			return err
		}
		acct, err = s.ledger.debit(ctx, r, userID, advantage.Cost)
		if err != nil {
			return err
		}
		purchase = domain.AdvantagePurchase{
			UserID:      userID,
			AdvantageID: advantage.ID,
			PurchasedAt: s.now(),
		}
		return r.Purchases().Create(ctx, &purchase)
	})
	if err != nil {
		return domain.AdvantagePurchase{}, err
	}
	s.ledger.publish(acct)
	s.logger.Info("advantage purchased", "user_id", userID, "advantage_id", advantageID, "balance", acct.TotalPoints)
	return purchase, nil
}

// MarkAdvantageUsed flags a purchase as consumed. Repeated calls by the owner
// return the purchase unchanged.
func (s *StoreService) MarkAdvantageUsed(ctx context.Context, userID, purchaseID int64) (domain.AdvantagePurchase, error) {
	var purchase domain.AdvantagePurchase
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		purchase, err = r.Purchases().FindByID(ctx, purchaseID)
		if err != nil {
			return err
		}
		if purchase.UserID != userID {
			return domain.ErrNotOwner
		}
		if purchase.Used {
			return nil
		}
		usedAt := s.now()
		purchase.Used = true
		purchase.UsedAt = &usedAt
		return r.Purchases().Update(ctx, purchase)
	})
	if err != nil {
		return domain.AdvantagePurchase{}, err
	}
	return purchase, nil
}

func (s *StoreService) Cosmetics(ctx context.Context) ([]domain.Cosmetic, error) {
	var out []domain.Cosmetic
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		out, err = r.Cosmetics().List(ctx)
		return err
	})
	return out, err
}

func (s *StoreService) Advantages(ctx context.Context) ([]domain.Advantage, error) {
	var out []domain.Advantage
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		out, err = r.Advantages().List(ctx)
		return err
	})
	return out, err
}

// Inventory lists the cosmetics owned by userID.
func (s *StoreService) Inventory(ctx context.Context, userID int64) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		out, err = r.Inventory().ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// Purchases lists the advantage purchases of userID, optionally only the unused ones.
func (s *StoreService) Purchases(ctx context.Context, userID int64, unusedOnly bool) ([]domain.AdvantagePurchase, error) {
	var out []domain.AdvantagePurchase
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		var err error
		out, err = r.Purchases().ListByUser(ctx, userID, unusedOnly)
		return err
	})
	return out, err
}

// CreateCosmetic adds a catalog cosmetic.
func (s *StoreService) CreateCosmetic(ctx context.Context, c domain.Cosmetic) (domain.Cosmetic, error) {
	if err := validateCatalogItem(c.Name, c.Cost); err != nil {
		return domain.Cosmetic{}, err
	}
	if strings.TrimSpace(c.Type) == "" {
		return domain.Cosmetic{}, domain.ErrMissingField
	}
	c.ID = 0
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Cosmetics().Create(ctx, &c)
	})
	if err != nil {
		return domain.Cosmetic{}, err
	}
	return c, nil
}

// UpdateCosmetic replaces a catalog cosmetic. Owned items keep the slot they were bought with.
func (s *StoreService) UpdateCosmetic(ctx context.Context, id int64, c domain.Cosmetic) (domain.Cosmetic, error) {
	if err := validateCatalogItem(c.Name, c.Cost); err != nil {
		return domain.Cosmetic{}, err
	}
	if strings.TrimSpace(c.Type) == "" {
		return domain.Cosmetic{}, domain.ErrMissingField
	}
	c.ID = id
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Cosmetics().Update(ctx, c)
	})
	if err != nil {
		return domain.Cosmetic{}, err
	}
	return c, nil
}

func (s *StoreService) DeleteCosmetic(ctx context.Context, id int64) error {
	return s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Cosmetics().Delete(ctx, id)
	})
}

// CreateAdvantage adds a catalog advantage.
func (s *StoreService) CreateAdvantage(ctx context.Context, a domain.Advantage) (domain.Advantage, error) {
	if err := validateCatalogItem(a.Name, a.Cost); err != nil {
		return domain.Advantage{}, err
	}
	a.ID = 0
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Advantages().Create(ctx, &a)
	})
	if err != nil {
		return domain.Advantage{}, err
	}
	return a, nil
}

func (s *StoreService) UpdateAdvantage(ctx context.Context, id int64, a domain.Advantage) (domain.Advantage, error) {
	if err := validateCatalogItem(a.Name, a.Cost); err != nil {
		return domain.Advantage{}, err
	}
	a.ID = id
	err := s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Advantages().Update(ctx, a)
	})
	if err != nil {
		return domain.Advantage{}, err
	}
	return a, nil
}

func (s *StoreService) DeleteAdvantage(ctx context.Context, id int64) error {
	return s.uow.Do(ctx, func(ctx context.Context, r Repositories) error {
		return r.Advantages().Delete(ctx, id)
	})
}

func validateCatalogItem(name string, cost int64) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrMissingField
	}
	if cost < 0 {
		return domain.ErrNegativeAmount
	}
	return nil
}
