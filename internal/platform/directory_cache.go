package platform

import (
	"context"
	"time"

	"github.com/DeploymentBot3000/DeploymentBot/internal/cache"
)

// CachedDirectory wraps a Directory and caches member name lookups so
// roster rendering does not hit the platform for every signup change.
type CachedDirectory struct {
	dir   Directory
	names *cache.Cache[string]
}

func NewCachedDirectory(dir Directory, ttl time.Duration) *CachedDirectory {
	d := &CachedDirectory{dir: dir}

	d.names = cache.NewWithTTL[string](ttl, func(userID string) (string, error) {
		return dir.ResolveMember(context.Background(), userID)
	})

	return d
}

func (d *CachedDirectory) ResolveMember(_ context.Context, userID string) (string, error) {
	name, err := d.names.Load(userID)

	if err != nil || name == "" {
		return "", ErrNotFound
	}

	return name, nil
}

func (d *CachedDirectory) SendDirectMessage(ctx context.Context, userID string, content string) error {
	return d.dir.SendDirectMessage(ctx, userID, content)
}
