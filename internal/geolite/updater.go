package geolite

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDownloadURL = "https://download.maxmind.com/app/geoip_download"
	userAgent          = "analyst-geolite-updater/1.0"

	editionASN  = "GeoLite2-ASN"
	editionCity = "GeoLite2-City"
)

var ErrNoLicenseKey = errors.New("geolite: license key is not configured")

type downloadTarget struct {
	editionID string
	path      string
}

// Updater downloads fresh GeoLite editions over the configured files and
// reloads the Reader afterwards.
type Updater struct {
	reader      *Reader
	licenseKey  string
	downloadURL string
	client      *http.Client
	targets     []downloadTarget
	updates     singleflight.Group
}

func NewUpdater(reader *Reader, licenseKey, downloadURL string) *Updater {
	if strings.TrimSpace(downloadURL) == "" {
		downloadURL = DefaultDownloadURL
	}
	return &Updater{
		reader:      reader,
		licenseKey:  strings.TrimSpace(licenseKey),
		downloadURL: downloadURL,
		client:      &http.Client{Timeout: 2 * time.Minute},
		targets: []downloadTarget{
			{editionID: editionASN, path: reader.asnPath},
			{editionID: editionCity, path: reader.cityPath},
		},
	}
}

// Update downloads both editions and reloads the reader. Concurrent calls
// share one download.
func (u *Updater) Update(ctx context.Context) error {
	_, err, _ := u.updates.Do("update", func() (interface{}, error) {
		if u.licenseKey == "" {
			return nil, ErrNoLicenseKey
		}

		for _, target := range u.targets {
			if strings.TrimSpace(target.path) == "" {
				log.Debug("GeoLite edition skipped: no path configured", "edition", target.editionID)
				continue
			}
			if err := u.downloadEdition(ctx, target); err != nil {
				return nil, err
			}
		}

		if err := u.reader.Reload(); err != nil {
			return nil, fmt.Errorf("reload geolite: %w", err)
		}
		return nil, nil
	})
	return err
}

// Run updates once at start and then every interval until ctx is done.
func (u *Updater) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.trigger(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.trigger(ctx, "scheduled")
		}
	}
}

func (u *Updater) trigger(ctx context.Context, reason string) {
	err := u.Update(ctx)
	switch {
	case errors.Is(err, ErrNoLicenseKey):
		log.Debug("GeoLite update skipped: license key missing", "reason", reason)
	case err != nil:
		log.Error("GeoLite update failed", "reason", reason, "error", err)
	default:
		log.Info("GeoLite databases updated", "reason", reason)
	}
}

func (u *Updater) downloadEdition(ctx context.Context, target downloadTarget) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.buildDownloadURL(target.editionID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", target.editionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("download %s: unexpected status %d: %s", target.editionID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	gzipReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: open gzip: %w", target.editionID, err)
	}
	defer gzipReader.Close()

	wanted := target.editionID + ".mmdb"
	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read tar: %w", target.editionID, err)
		}
		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != wanted {
			continue
		}

		if err := writeToFile(target.path, tarReader); err != nil {
			return fmt.Errorf("%s: write file: %w", target.editionID, err)
		}
		return nil
	}

	return fmt.Errorf("%s: mmdb file not found in archive", target.editionID)
}

// writeToFile replaces destPath atomically so open readers keep their mapping.
func writeToFile(destPath string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), "geolite-*.mmdb")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := io.Copy(tmpFile, data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), destPath); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

func (u *Updater) buildDownloadURL(edition string) string {
	query := url.Values{}
	query.Set("edition_id", edition)
	query.Set("license_key", u.licenseKey)
	query.Set("suffix", "tar.gz")
	return u.downloadURL + "?" + query.Encode()
}
