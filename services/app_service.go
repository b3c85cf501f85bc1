package services

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// AppService tracks uploaded application builds and serves update checks
// from registered devices. Builds land in the app folder of the bucket as
// {name}_v{version}.{ext} and are recorded under the app partition.
type AppService struct {
	Store    RecordStore
	Objects  ObjectStore
	Notifier Notifier

	Table           string
	AppFolder       string
	AppUpdatesTopic string
	MinSdk          int
	DownloadExpiry  time.Duration
}

// RecordRelease registers an uploaded build and announces it on the app
// updates topic.
func (as *AppService) RecordRelease(ctx context.Context, key string) (*models.AppRelease, error) {
	name, version, err := decodeAppKey(key, as.AppFolder)
	if err != nil {
		return nil, err
	}
	release := models.AppRelease{
		PartitionKey: models.AppPartition,
		Sort:         models.TimeToSortKey(time.Now()),
		Name:         name,
		Version:      version,
		Platform:     models.PlatformAndroid,
		MinSdk:       as.MinSdk,
	}
	if err := as.Store.Put(ctx, as.Table, release, nil); err != nil {
		return nil, err
	}

	as.Notifier.PublishAsync(models.Notification{
		Message: "version " + version + " of the app is available",
		Title:   "update available",
		Channel: models.ChannelAppUpdates,
		Topic:   as.AppUpdatesTopic,
	})
	return &release, nil
}

// LatestRelease returns a presigned download URL for the newest build that
// the device can run and does not have yet. ErrNotFound means the device is
// up to date.
func (as *AppService) LatestRelease(ctx context.Context, device models.Device) (string, error) {
	osVersion, err := strconv.Atoi(device.OSVersion)
	if err != nil {
		return "", fmt.Errorf("device os version %q is not a number: %w", device.OSVersion, ErrBadRequest)
	}

	var cursor map[string]string
	for {
		page, err := as.Store.Query(ctx, RangeQuery{
			Table:      as.Table,
			HashName:   "partitionKey",
			HashValue:  models.AppPartition,
			SortName:   "sort",
			Descending: true,
			StartKey:   cursor,
		})
		if err != nil {
			return "", err
		}
		var releases []models.AppRelease
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &releases); err != nil {
			return "", fmt.Errorf("failed to unmarshal app releases: %w", err)
		}
		for _, release := range releases {
			if release.Platform != device.Platform || release.MinSdk > osVersion {
				continue
			}
			if !versionNewer(release.Version, device.AppVersion) {
				continue
			}
			return as.Objects.SignDownload(ctx, as.AppFolder+"/"+release.Name, as.DownloadExpiry)
		}
		cursor = page.LastKey
		if len(cursor) == 0 {
			return "", fmt.Errorf("no release newer than %s: %w", device.AppVersion, ErrNotFound)
		}
	}
}

// decodeAppKey parses {folder}/{name}_v{version}.{ext} into the full object
// file name and the version string.
func decodeAppKey(key, folder string) (name, version string, err error) {
	if !strings.HasPrefix(key, folder+"/") {
		return "", "", fmt.Errorf("app upload outside %s folder: %s: %w", folder, key, ErrBadRequest)
	}
	name = strings.TrimPrefix(key, folder+"/")
	base := strings.TrimSuffix(name, path.Ext(name))
	idx := strings.LastIndex(base, "_v")
	if idx < 1 || idx+2 >= len(base) {
		return "", "", fmt.Errorf("cannot decode app version from %s: %w", key, ErrBadRequest)
	}
	return name, base[idx+2:], nil
}

// versionNewer compares dotted numeric versions segment by segment.
func versionNewer(candidate, current string) bool {
	if current == "" {
		return true
	}
	a, b := strings.Split(candidate, "."), strings.Split(current, ".")
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av, _ = strconv.Atoi(a[i])
		}
		if i < len(b) {
			bv, _ = strconv.Atoi(b[i])
		}
		if av != bv {
			return av > bv
		}
	}
	return false
}
