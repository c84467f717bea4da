package paths

import (
	"sync"

	"github.com/dean0x/devlog/internal/fsutil"
)

// registryMu serializes registry read-modify-write cycles within this
// process. Cross-process races are expected and benign per the contract:
// the Daemon's drain dedupes against its in-memory project set.
var registryMu sync.Mutex

// Register adds path to the pending-project registry if it is not already
// present. Best-effort: concurrent writers may race across processes, and
// that is acceptable.
func Register(path string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var entries []string
	if _, err := fsutil.ReadJSON(RegistryFile(), &entries); err != nil {
		return err
	}

	for _, existing := range entries {
		if existing == path {
			return nil
		}
	}
	entries = append(entries, path)
	return fsutil.WriteJSONAtomic(RegistryFile(), entries)
}

// Consume atomically reads the registry and rewrites it to an empty array,
// returning whatever was present beforehand.
func Consume() ([]string, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	var entries []string
	if _, err := fsutil.ReadJSON(RegistryFile(), &entries); err != nil {
		return nil, err
	}
	if err := fsutil.WriteJSONAtomic(RegistryFile(), []string{}); err != nil {
		return nil, err
	}
	return entries, nil
}
