// Package attachments downloads page resources (images, ink renderings,
// embedded files) into the vault, throttling itself in small batches.
package attachments

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/logger"
	"github.com/mrlokans/notebridge/internal/utils"
	"github.com/mrlokans/notebridge/internal/vault"
)

// Fetcher downloads attachments one at a time. After every batchSize
// network downloads it pauses, which keeps long attachment-heavy imports
// under provider throttling thresholds. Skipped (already present) files
// do not count toward a batch.
type Fetcher struct {
	client *graph.Client
	vault  *vault.Vault

	batchSize int
	pause     time.Duration

	downloads int
	byURL     map[string]string // resource URL -> vault-relative path this run
	claimed   map[string]bool   // vault-relative paths claimed this run
}

// NewFetcher creates a fetcher writing through the given vault.
func NewFetcher(client *graph.Client, v *vault.Vault, batchSize int, pause time.Duration) *Fetcher {
	if batchSize <= 0 {
		batchSize = 7
	}
	return &Fetcher{
		client:    client,
		vault:     v,
		batchSize: batchSize,
		pause:     pause,
		byURL:     make(map[string]string),
		claimed:   make(map[string]bool),
	}
}

// Fetch downloads one attachment into dir (vault-relative) under the given
// display name and returns the final vault-relative path. A file already on
// disk under that name is reused without any network call. Two different
// resources claiming the same name within a run get numbered variants.
func (f *Fetcher) Fetch(ctx context.Context, resourceURL, dir, name string) (string, error) {
	if path, ok := f.byURL[resourceURL]; ok {
		return path, nil
	}

	base := utils.SanitizeFilename(name)
	dest := dir + "/" + base

	if f.vault.Exists(dest) && !f.claimed[dest] {
		logger.Debug("attachment already present, skipping download", logger.Fields{"path": dest})
		f.byURL[resourceURL] = dest
		f.claimed[dest] = true
		return dest, nil
	}

	for n := 1; f.claimed[dest] || f.vault.Exists(dest); n++ {
		dest = dir + "/" + utils.NumberedName(base, n)
	}

	data, err := f.client.GetBinary(ctx, resourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment %s: %w", name, err)
	}

	if err := f.vault.WriteBinary(dest, data); err != nil {
		return "", err
	}

	f.byURL[resourceURL] = dest
	f.claimed[dest] = true

	f.downloads++
	if f.downloads%f.batchSize == 0 {
		logger.Debug("attachment batch complete, pausing", logger.Fields{
			"downloads": f.downloads,
			"pause":     f.pause.String(),
		})
		if err := sleepCtx(ctx, f.pause); err != nil {
			return dest, err
		}
	}

	return dest, nil
}

// Downloads returns the number of network downloads performed this run.
func (f *Fetcher) Downloads() int {
	return f.downloads
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
