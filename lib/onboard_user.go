package lib

import (
	"context"
	"strings"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"go.uber.org/zap"
)

type onboardUser struct {
	log   *zap.Logger
	store *store.Store
}

func (svc *onboardUser) OnboardUser(ctx context.Context, email string) (*models.User, error) {
	user, err := svc.store.CreateUser(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	svc.log.Sugar().Infof("Created user %v (%s)", user.ID, user.Email)
	return user, nil
}

// LinkTelegram stores where Telegram notifications go; an empty chat id unlinks.
func (svc *onboardUser) LinkTelegram(ctx context.Context, userID uint, chatID string) (*models.User, error) {
	if err := svc.store.LinkTelegram(ctx, userID, strings.TrimSpace(chatID)); err != nil {
		return nil, err
	}
	svc.log.Sugar().Infow("Updated telegram link", "user_id", userID, "linked", chatID != "")
	return svc.store.FindUser(ctx, userID)
}
