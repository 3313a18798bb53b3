package content

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/stillmind/meditation-service/pkg/metrics"
)

const (
	assetCacheTTL     = 1 * time.Hour
	assetCacheCleanup = 10 * time.Minute
)

// Source is the two-tier content source: remote catalog first, bundled
// fallback list second. Precedence is explicit: the fallback is used only when
// the remote fetch errors out (after bounded retries) or returns no sessions.
type Source struct {
	remote   *RemoteCatalog
	fallback []Session

	assetBaseURL string
	assetCache   *gocache.Cache

	mu       sync.RWMutex
	sessions []Session
}

type SourceConfig struct {
	// AssetBaseURL resolves gs:// asset references to fetchable https URLs.
	AssetBaseURL string
	// FetchRetries bounds remote fetch attempts before falling back.
	FetchRetries uint64
}

// NewSource creates a content source over a remote catalog and a bundled
// fallback list. The fallback list must be non-empty.
func NewSource(remote *RemoteCatalog, fallback []Session, cfg SourceConfig) *Source {
	return &Source{
		remote:       remote,
		fallback:     fallback,
		assetBaseURL: strings.TrimRight(cfg.AssetBaseURL, "/"),
		assetCache:   gocache.New(assetCacheTTL, assetCacheCleanup),
		sessions:     fallback,
	}
}

// Refresh reloads the session list from the remote catalog, falling back to
// the bundled list on error or an empty result. It never fails: content
// browsing must survive a dead backend.
func (s *Source) Refresh(ctx context.Context) {
	var fetched []Session

	operation := func() error {
		sessions, err := s.remote.Fetch(ctx)
		if err != nil {
			logrus.Warnf("remote catalog fetch failed: %v, retrying...", err)
			return err
		}
		fetched = sessions
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	err := backoff.Retry(operation, b)

	if err != nil || len(fetched) == 0 {
		if err != nil {
			logrus.Warnf("remote catalog unavailable, using bundled session list: %v", err)
		} else {
			logrus.Info("remote catalog is empty, using bundled session list")
		}
		metrics.ContentFallback.Inc()
		s.setSessions(s.fallback)
		return
	}

	s.setSessions(fetched)
}

func (s *Source) setSessions(sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
}

// List returns all sessions from the active tier.
func (s *Source) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// ByID finds a session by id.
func (s *Source) ByID(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.ID == id {
			return session, true
		}
	}
	return Session{}, false
}

// ByCategory returns sessions in the given category.
func (s *Source) ByCategory(category Category) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Session
	for _, session := range s.sessions {
		if session.Category == category {
			out = append(out, session)
		}
	}
	return out
}

// ResolveAssetURL turns a catalog asset reference into a fetchable URL.
// References using the gs:// object-store scheme are rewritten against the
// asset base URL; https URLs pass through. Resolutions are cached.
func (s *Source) ResolveAssetURL(ref string) string {
	if ref == "" {
		return ""
	}
	if cached, ok := s.assetCache.Get(ref); ok {
		return cached.(string)
	}

	resolved := ref
	if strings.HasPrefix(ref, "gs://") {
		// gs://bucket/object maps to <base>/bucket/object.
		path := strings.TrimPrefix(ref, "gs://")
		if s.assetBaseURL == "" {
			logrus.Warnf("cannot resolve asset reference %s: no asset base URL configured", ref)
			resolved = ""
		} else {
			resolved = s.assetBaseURL + "/" + path
		}
	}

	s.assetCache.Set(ref, resolved, gocache.DefaultExpiration)
	return resolved
}
