package registry

import (
	"sort"

	"github.com/ruteri/identity-gateway/interfaces"
)

// userBuckets returns the buckets whose files belong to the user's own index.
func userBuckets(user *interfaces.User) []string {
	return []string{user.Address}
}

// globalBuckets returns every bucket reachable by the user: its own, the
// internal bucket and all buckets referenced by its connections.
func globalBuckets(user *interfaces.User) []string {
	seen := map[string]struct{}{}
	var buckets []string
	add := func(bucket string) {
		if bucket == "" {
			return
		}
		if _, ok := seen[bucket]; ok {
			return
		}
		seen[bucket] = struct{}{}
		buckets = append(buckets, bucket)
	}

	add(user.Address)
	add(user.InternalBucketAddress)
	for _, conn := range user.Connections {
		if conn == nil {
			continue
		}
		for _, bucket := range conn.Buckets {
			add(bucket)
		}
	}
	sort.Strings(buckets)
	return buckets
}

func sortIndex(index interfaces.FileIndex) {
	for _, entries := range index {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	}
}
