package bootstrap

import (
	"github.com/eleven-am/voice-scribe/internal/correction"
	"github.com/eleven-am/voice-scribe/internal/history"
	"github.com/eleven-am/voice-scribe/internal/user"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideUserStore(db *gorm.DB) *user.Store {
	return user.NewStore(db)
}

func ProvideCorrectionStore(db *gorm.DB) *correction.Store {
	return correction.NewStore(db)
}

func ProvideHistoryStore(redisClient *redis.Client, cfg *Config) *history.Store {
	return history.NewStore(redisClient, cfg.HistoryTTL)
}

func RunMigrations(userStore *user.Store, correctionStore *correction.Store) error {
	if err := userStore.Migrate(); err != nil {
		return err
	}
	return correctionStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideUserStore,
		ProvideCorrectionStore,
		ProvideHistoryStore,
	),
	fx.Invoke(RunMigrations),
)
