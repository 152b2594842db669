package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSelfSubscription = errors.New("cannot subscribe to yourself")

// User 由外部认证服务维护，本服务只读
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"column:email;size:254;uniqueIndex" json:"email"`
	Username  string    `gorm:"column:username;size:150;uniqueIndex" json:"username"`
	FirstName string    `gorm:"column:first_name;size:150" json:"first_name"`
	LastName  string    `gorm:"column:last_name;size:150" json:"last_name"`
	CreatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// Subscription follower -> author
type Subscription struct {
	ID         uint      `gorm:"primaryKey"`
	AuthorID   uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
}

func (Subscription) TableName() string { return "subscriptions" }

// BeforeCreate 任何写入路径都不允许关注自己
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.AuthorID == s.FollowerID {
		return ErrSelfSubscription
	}
	return nil
}
