package regions

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/states.txt
var dataFS embed.FS

const defaultDataPath = "data/states.txt"

var (
	defaultOnce    sync.Once
	defaultRegions map[string][]string
	defaultErr     error
)

// DefaultRegions loads the embedded country-to-state dataset.
func DefaultRegions() (map[string][]string, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultDataPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		regions, err := LoadRegions(f)
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegions = regions
	})

	if defaultErr != nil {
		return nil, defaultErr
	}
	return cloneRegions(defaultRegions), nil
}

// LoadRegions parses a country-to-state dataset. One "Country|State" pair per
// line; blank lines and '#' comments are skipped, duplicates collapse.
func LoadRegions(r io.Reader) (map[string][]string, error) {
	if r == nil {
		return nil, fmt.Errorf("regions: missing reader")
	}

	scanner := bufio.NewScanner(r)
	regions := make(map[string][]string, 16)
	seen := map[string]struct{}{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		country, state, ok := strings.Cut(line, "|")
		if !ok {
			return nil, fmt.Errorf("regions: malformed line %q", line)
		}
		country = strings.TrimSpace(country)
		state = strings.TrimSpace(state)
		if country == "" || state == "" {
			return nil, fmt.Errorf("regions: malformed line %q", line)
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		regions[country] = append(regions[country], state)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for country := range regions {
		sort.Strings(regions[country])
	}
	return regions, nil
}

// Countries returns the dataset's country names in sorted order.
func Countries(regions map[string][]string) []string {
	out := make([]string, 0, len(regions))
	for country := range regions {
		out = append(out, country)
	}
	sort.Strings(out)
	return out
}

// StatesFor looks a country up case-insensitively.
func StatesFor(regions map[string][]string, country string) []string {
	if states, ok := regions[country]; ok {
		return append([]string{}, states...)
	}
	for name, states := range regions {
		if strings.EqualFold(name, country) {
			return append([]string{}, states...)
		}
	}
	return nil
}
