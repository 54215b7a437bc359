package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"deposit-collector/internal/model"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) FindByUID(ctx context.Context, uid string) (*model.Member, error) {
	var m model.Member
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&m).Error; err != nil {
		return nil, notFound(err, "member %q", uid)
	}
	return &m, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
