package email

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

//go:embed disposable_domains.txt
var defaultDisposableDomains string

// DisposableDomains is a read-only set of lowercase disposable email domains.
//
// It's built once at startup and never modified afterwards, so it's safe for
// any number of concurrent readers.
type DisposableDomains struct {
	domains map[string]struct{}
}

// NewDisposableDomains builds a set from the given domains, lowercasing each.
func NewDisposableDomains(domains ...string) DisposableDomains {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[strings.ToLower(d)] = struct{}{}
	}
	return DisposableDomains{set}
}

var parseDefaultDisposableDomains = sync.OnceValue(func() DisposableDomains {
	domains, err := LoadDisposableDomains(
		strings.NewReader(defaultDisposableDomains),
	)
	if err != nil {
		panic("embedded disposable domain list is invalid: " + err.Error())
	}
	return domains
})

// DefaultDisposableDomains returns the set built from the embedded list.
func DefaultDisposableDomains() DisposableDomains {
	return parseDefaultDisposableDomains()
}

// LoadDisposableDomains parses one domain per line from r.
//
// Surrounding whitespace, blank lines, and lines starting with "#" are
// ignored. Returns every malformed line in one error.
func LoadDisposableDomains(r io.Reader) (DisposableDomains, error) {
	scanner := bufio.NewScanner(r)
	domains := make([]string, 0, 100)
	errs := make([]error, 0)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		} else if strings.ContainsAny(line, "@ \t") {
			const errFmt = "line %d: invalid domain: %q"
			errs = append(errs, fmt.Errorf(errFmt, lineNum, line))
			continue
		}
		domains = append(domains, line)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return DisposableDomains{}, fmt.Errorf(
			"failed to load disposable domains: %w", err,
		)
	}
	return NewDisposableDomains(domains...), nil
}

// LoadDisposableDomainsFile reads the set from the file at path.
func LoadDisposableDomainsFile(path string) (DisposableDomains, error) {
	f, err := os.Open(path)
	if err != nil {
		return DisposableDomains{}, fmt.Errorf(
			"failed to open disposable domains file: %w", err,
		)
	}
	defer f.Close()
	return LoadDisposableDomains(f)
}

// Contains reports whether domain, compared case insensitively, is in the set.
func (d DisposableDomains) Contains(domain string) bool {
	_, ok := d.domains[strings.ToLower(domain)]
	return ok
}

// Len returns the number of domains in the set.
func (d DisposableDomains) Len() int {
	return len(d.domains)
}
