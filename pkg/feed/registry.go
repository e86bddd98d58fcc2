package feed

import (
	"fmt"
	"net/http"

	"github.com/umputun/socialfeed/pkg/config"
	"github.com/umputun/socialfeed/pkg/domain"
)

// QueryFactory builds a per-fetch query for a tracked account.
type QueryFactory func(cfg *config.Config, client *http.Client, username string) (Query, error)

type sourceEntry struct {
	newQuery  QueryFactory
	normalize Normalizer
}

// sources is the static registry, resolved at startup. Exactly three
// protocols, no runtime registration.
var sources = map[domain.Source]sourceEntry{
	domain.SourceMicroblog:     {newQuery: newMicroblogQuery, normalize: normalizeMicroblog},
	domain.SourcePhotoShare:    {newQuery: newPhotoShareQuery, normalize: normalizePhotoShare},
	domain.SourceSocialNetwork: {newQuery: newSocialNetQuery, normalize: normalizeSocialNet},
}

// lookup resolves a source to its adapter pair.
func lookup(source domain.Source) (sourceEntry, error) {
	entry, ok := sources[source]
	if !ok {
		return sourceEntry{}, fmt.Errorf("%w %q", ErrUnsupportedSource, source)
	}
	return entry, nil
}
