package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/pkg/database"
	"chat_roster_service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserProfile gorm entity of the contacts schema profile table
type UserProfile struct {
	UserID    string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(128)"`
	AvatarRef string `gorm:"type:varchar(256)"`
}

// TableName gorm table name
func (UserProfile) TableName() string { return "user_profiles" }

// Contact gorm entity, one per (owner, peer) with nickname overrides
type Contact struct {
	OwnerID  string `gorm:"primaryKey;type:varchar(36)"`
	PeerID   string `gorm:"primaryKey;type:varchar(36)"`
	Nickname string `gorm:"type:varchar(128)"`
	Title    string `gorm:"type:varchar(128)"`
}

// TableName gorm table name
func (Contact) TableName() string { return "contacts" }

// ContactRepository definition peer profile and nickname override reads.
// Every lookup here is non-fatal to the roster build.
type ContactRepository interface {
	ProfilesForUsers(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
	ProfileOverrides(ctx context.Context, userID string) (map[string]domain.ProfileOverride, error)
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository create a ContactRepository over the contacts schema
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// AutoMigrateContacts migrate the contacts schema tables
func AutoMigrateContacts(db *gorm.DB) error {
	return db.AutoMigrate(&UserProfile{}, &Contact{})
}

func (r *contactRepository) ProfilesForUsers(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	var profiles []UserProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}

	result := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		result[p.UserID] = domain.Profile{
			UserID:    p.UserID,
			Name:      p.Name,
			AvatarRef: p.AvatarRef,
		}
	}
	return result, nil
}

func (r *contactRepository) ProfileOverrides(ctx context.Context, userID string) (map[string]domain.ProfileOverride, error) {
	var contacts []Contact
	if err := r.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&contacts).Error; err != nil {
		return nil, err
	}

	result := make(map[string]domain.ProfileOverride, len(contacts))
	for _, c := range contacts {
		result[c.PeerID] = domain.ProfileOverride{
			Name:  c.Nickname,
			Title: c.Title,
		}
	}
	return result, nil
}

// cachedContactRepository read-through cache so repeated roster builds for
// the same user don't hit the contacts schema every time
type cachedContactRepository struct {
	inner     ContactRepository
	overrides database.RedisRepository[map[string]domain.ProfileOverride]
	profiles  database.RedisRepository[map[string]domain.Profile]
	ttl       time.Duration
}

// NewCachedContactRepository wrap a ContactRepository with a redis cache
func NewCachedContactRepository(
	inner ContactRepository,
	overrides database.RedisRepository[map[string]domain.ProfileOverride],
	profiles database.RedisRepository[map[string]domain.Profile],
	ttl time.Duration,
) ContactRepository {
	return &cachedContactRepository{
		inner:     inner,
		overrides: overrides,
		profiles:  profiles,
		ttl:       ttl,
	}
}

func (r *cachedContactRepository) ProfilesForUsers(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	key := "contacts:profiles:" + hashKey(userIDs)
	if cached, err := r.profiles.Get(ctx, key); err == nil {
		return cached, nil
	}

	result, err := r.inner.ProfilesForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if err := r.profiles.Set(ctx, key, result, r.ttl); err != nil {
		logger.Log.Warn("profile cache set failed", zap.Error(err))
	}
	return result, nil
}

func (r *cachedContactRepository) ProfileOverrides(ctx context.Context, userID string) (map[string]domain.ProfileOverride, error) {
	key := "contacts:overrides:" + userID
	if cached, err := r.overrides.Get(ctx, key); err == nil {
		return cached, nil
	}

	result, err := r.inner.ProfileOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.overrides.Set(ctx, key, result, r.ttl); err != nil {
		logger.Log.Warn("override cache set failed", zap.Error(err))
	}
	return result, nil
}

// hashKey stable cache key for an id set, order independent
func hashKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	h := fnv.New64a()
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
