package versions

import "github.com/httm-go/httm/internal/model"

// SelectNewest returns the single most-recent descriptor in a version set,
// without re-sorting the whole set — a direct port of the original's
// last_in_time lookup, used by callers that only need "restore the latest
// version" rather than the full browsable list.
func SelectNewest(descriptors []model.PathDescriptor) (model.PathDescriptor, bool) {
	var newest model.PathDescriptor
	found := false
	for _, d := range descriptors {
		mt, ok := d.ModifyTime()
		if !ok {
			continue
		}
		if !found {
			newest = d
			found = true
			continue
		}
		newestTime, _ := newest.ModifyTime()
		if mt.After(newestTime) {
			newest = d
		}
	}
	return newest, found
}
