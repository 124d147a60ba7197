package lists

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/log"
	"cdn-blocker/lib/utils"
)

// htmlMarkers betray an HTML error page served instead of a range list.
var htmlMarkers = []string{"<html", "<!doctype"}

// Fetch downloads a range list from url with a bounded timeout and rejects
// bodies that are empty or look like HTML error pages. It performs no
// retries; a failure here aborts apply before any firewall mutation.
func Fetch(url string, timeout time.Duration) (string, error) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errdefs.ErrFetchFailed, err)
	}
	defer utils.CloseOrPanic(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %s from %s", errdefs.ErrFetchFailed, resp.Status, url)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response from %s: %v", errdefs.ErrFetchFailed, url, err)
	}

	body := string(content)
	if err := validateListBody(body, url); err != nil {
		return "", err
	}

	return body, nil
}

func validateListBody(body string, url string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty response from %s", errdefs.ErrInvalidList, url)
	}

	probe := strings.ToLower(body)
	if len(probe) > 512 {
		probe = probe[:512]
	}
	for _, marker := range htmlMarkers {
		if strings.Contains(probe, marker) {
			return fmt.Errorf("%w: response from %s looks like an HTML page", errdefs.ErrInvalidList, url)
		}
	}

	return nil
}

// BuildBlocklist fetches and normalizes every configured source. Any fetch
// or validation failure aborts the whole build so that apply never mutates
// firewall state from a partial download. Duplicate ranges across sources
// collapse.
func BuildBlocklist(cfg *config.Config) (*Blocklist, error) {
	timeout := time.Duration(cfg.General.DownloadTimeout) * time.Second

	merged := &Blocklist{}
	for _, src := range cfg.Sources {
		log.Infof("Downloading list \"%s\" from URL: %s", src.SourceName, src.URL)

		body, err := Fetch(src.URL, timeout)
		if err != nil {
			return nil, fmt.Errorf("list \"%s\": %w", src.SourceName, err)
		}

		ranges, skipped := Normalize(body)
		log.Infof("List \"%s\": %d ranges parsed, %d tokens skipped", src.SourceName, len(ranges), skipped)

		merged.append(ranges, skipped)
	}

	if merged.Len() == 0 {
		return nil, fmt.Errorf("%w: no usable IPv4 ranges in any configured source", errdefs.ErrInvalidList)
	}

	return merged, nil
}
