package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/pkg/logger"
)

var (
	managerMu   sync.RWMutex
	disks       = map[string]Disk{}
	defaultDisk = "local"
)

// Connect boots the local disk and, when S3_BUCKET is set, the s3 disk.
// STORAGE_DISK picks the default; an s3 default that fails to boot falls
// back to local with a warning.
func Connect(ctx context.Context) {
	managerMu.Lock()
	defer managerMu.Unlock()

	disks["local"] = NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
	defaultDisk = config.StorageDefault()

	if config.StorageS3Bucket() != "" {
		d, err := NewS3Disk(ctx)
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	if _, ok := disks[defaultDisk]; !ok {
		logger.Warn("storage: default disk unavailable, using local", "disk", defaultDisk)
		defaultDisk = "local"
	}
}

// Use returns the named disk.
func Use(name string) (Disk, error) {
	managerMu.RLock()
	defer managerMu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// RegisterDisk plugs in a disk and optionally makes it the default.
func RegisterDisk(name string, d Disk, makeDefault bool) {
	managerMu.Lock()
	defer managerMu.Unlock()
	disks[name] = d
	if makeDefault {
		defaultDisk = name
	}
}

// Default returns the default disk, booting the local one on first use.
func Default() Disk {
	managerMu.RLock()
	d, ok := disks[defaultDisk]
	managerMu.RUnlock()
	if ok {
		return d
	}

	local := NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
	RegisterDisk("local", local, true)
	return local
}
