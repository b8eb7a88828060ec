package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lawha/models"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func cairo(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	return loc
}

// setupDB 建立 in-memory 資料庫
// 限制單一連線，讓併發測試的條件式 UPDATE 有一致的行為
func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time {
		return at
	}
}

// seedArtwork 建立一幅畫作與單一尺寸的庫存列
func seedArtwork(t *testing.T, db *gorm.DB, artwork models.Artwork, sizes ...models.ArtworkSize) models.Artwork {
	require.NoError(t, db.Create(&artwork).Error)
	for i := range sizes {
		sizes[i].ArtworkID = artwork.ID
		require.NoError(t, db.Create(&sizes[i]).Error)
	}
	return artwork
}

// stubLocker 以行程內互斥鎖代替分散式鎖
type stubLocker struct {
	mu *sync.Mutex
}

func (l *stubLocker) Lock(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	return ctx, nil
}

func (l *stubLocker) Unlock() (bool, error) {
	l.mu.Unlock()
	return true, nil
}

var _ Locker = (*stubLocker)(nil)

func stubLockProvider() LockProvider {
	var locks sync.Map
	return func(artworkID uuid.UUID) Locker {
		mu, _ := locks.LoadOrStore(artworkID, &sync.Mutex{})
		return &stubLocker{mu: mu.(*sync.Mutex)}
	}
}
