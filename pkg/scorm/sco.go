package scorm

import (
	"errors"

	"github.com/kiyor/scormplayer/pkg/store"
)

// CheckLaunchableSco returns scoid when it names a launchable item of the
// package. An organization or container resolves to the first launchable
// item after it, anything else to the package's first launchable item. The
// input is returned unchanged when the package has nothing launchable.
func (l *Library) CheckLaunchableSco(sc *store.Scorm, scoid int64) (int64, error) {
	sco, err := l.store.Sco(scoid)
	switch {
	case err == nil && sco.Scorm == sc.ID:
		if sco.Launchable() {
			return sco.ID, nil
		}
		next, err := l.store.FirstLaunchableSco(sc.ID, sco.ID)
		if err == nil {
			return next.ID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return 0, err
	}

	first, err := l.store.FirstLaunchableSco(sc.ID, 0)
	if err == nil {
		return first.ID, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return scoid, nil
	}
	return 0, err
}
