package obligation

import (
	"context"

	"lever/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type obligationStore struct {
	db *db.DB
}

// New new obligation store
func New(db *db.DB) core.IObligationStore {
	return &obligationStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update()
		if err := tx.AutoMigrate(core.Obligation{}).Error; err != nil {
			return err
		}
		if err := tx.AutoMigrate(core.DepositPosition{}).Error; err != nil {
			return err
		}
		if err := tx.AutoMigrate(core.BorrowPosition{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *obligationStore) Save(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	if err := tx.Update().Create(obligation).Error; err != nil {
		return err
	}

	return s.savePositions(ctx, tx, obligation)
}

func (s *obligationStore) Find(ctx context.Context, userID string) (*core.Obligation, error) {
	var obligation core.Obligation
	if err := s.db.View().Where("user_id=?", userID).First(&obligation).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.loadPositions(ctx, &obligation); err != nil {
		return nil, err
	}

	return &obligation, nil
}

func (s *obligationStore) All(ctx context.Context) ([]*core.Obligation, error) {
	var obligations []*core.Obligation
	if err := s.db.View().Find(&obligations).Error; err != nil {
		return nil, err
	}

	for _, ob := range obligations {
		if err := s.loadPositions(ctx, ob); err != nil {
			return nil, err
		}
	}

	return obligations, nil
}

func (s *obligationStore) Users(ctx context.Context) ([]string, error) {
	var users []string
	if err := s.db.View().Model(core.Obligation{}).Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (s *obligationStore) Update(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	version := obligation.Version
	obligation.Version++

	if err := tx.Update().Model(core.Obligation{}).
		Where("user_id=? and version=?", obligation.UserID, version).
		Updates(obligation).Error; err != nil {
		return err
	}

	return s.savePositions(ctx, tx, obligation)
}

// Delete drop an obligation once both position lists are empty
func (s *obligationStore) Delete(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	if len(obligation.Deposits) > 0 || len(obligation.Borrows) > 0 {
		return core.ErrOperationForbidden
	}

	if err := tx.Update().Where("user_id=?", obligation.UserID).Delete(core.Obligation{}).Error; err != nil {
		return err
	}

	return nil
}

func (s *obligationStore) loadPositions(ctx context.Context, obligation *core.Obligation) error {
	if err := s.db.View().Where("user_id=?", obligation.UserID).Order("id").Find(&obligation.Deposits).Error; err != nil {
		return err
	}
	if err := s.db.View().Where("user_id=?", obligation.UserID).Order("id").Find(&obligation.Borrows).Error; err != nil {
		return err
	}

	return nil
}

// savePositions rewrites the position rows to mirror the in memory lists,
// dropped entries are deleted
func (s *obligationStore) savePositions(ctx context.Context, tx *db.DB, obligation *core.Obligation) error {
	if err := tx.Update().Where("user_id=?", obligation.UserID).Delete(core.DepositPosition{}).Error; err != nil {
		return err
	}
	if err := tx.Update().Where("user_id=?", obligation.UserID).Delete(core.BorrowPosition{}).Error; err != nil {
		return err
	}

	for _, d := range obligation.Deposits {
		d.ID = 0
		d.UserID = obligation.UserID
		if err := tx.Update().Create(d).Error; err != nil {
			return err
		}
	}
	for _, b := range obligation.Borrows {
		b.ID = 0
		b.UserID = obligation.UserID
		if err := tx.Update().Create(b).Error; err != nil {
			return err
		}
	}

	return nil
}
