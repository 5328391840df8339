package model

import "time"

// Cache is a stored intermediate result of sample read trimming, reusable by
// later analyses of the same sample. Key fingerprints the trimming program
// and parameters so an analysis can find a compatible cache.
//
// Missing marks caches whose backing files were lost from the data directory;
// missing caches stay listed but are never reused.
type Cache struct {
	ID        string      `json:"id"         db:"id"`
	Key       string      `json:"key"        db:"key"`
	SampleID  string      `json:"sample_id"  db:"sample_id"`
	Program   string      `json:"program"    db:"program"`
	Files     []CacheFile `json:"files"      db:"files"`
	Missing   bool        `json:"missing"    db:"missing"`
	Ready     bool        `json:"ready"      db:"ready"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// CacheFile describes one file belonging to a cache.
type CacheFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CachePath returns the cache's directory relative to the caches root.
func (c *Cache) CachePath() string {
	return c.ID
}

// Reusable reports whether an analysis may attach to this cache.
func (c *Cache) Reusable() bool {
	return c.Ready && !c.Missing
}
