package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mbland/emailcheck/email"
	"github.com/mbland/emailcheck/ops"
)

type Options struct {
	ListenAddr            string
	MaxUploadBytes        int64
	ValidationWorkers     int
	DisposableDomainsFile string
	CorsAllowedOrigins    []string

	MxCheckEnabled   bool
	MxCacheTtl       time.Duration
	MxCacheSize      int
	MxLookupTimeout  time.Duration
	MxCacheTableName string

	SuppressionCheckEnabled bool
	SuppressionCheckRate    int
}

// GetOptions reads Options from environment variables via getenv.
//
// Every variable is optional. Returns an error describing every variable with
// an invalid value.
func GetOptions(getenv func(string) string) (*Options, error) {
	env := environment{getenv: getenv}
	return env.options()
}

type environment struct {
	getenv func(string) string
	errs   []error
}

func (env *environment) options() (*Options, error) {
	opts := Options{}
	env.assign(&opts.ListenAddr, "LISTEN_ADDR", ":8080")
	env.assignInt64(
		&opts.MaxUploadBytes, "MAX_UPLOAD_BYTES", ops.MaxUploadBytes,
	)
	env.assignInt(
		&opts.ValidationWorkers, "VALIDATION_WORKERS", ops.DefaultWorkers,
	)
	env.assign(&opts.DisposableDomainsFile, "DISPOSABLE_DOMAINS_FILE", "")
	env.assignList(&opts.CorsAllowedOrigins, "CORS_ALLOWED_ORIGINS", "*")

	env.assignBool(&opts.MxCheckEnabled, "MX_CHECK_ENABLED")
	env.assignDuration(
		&opts.MxCacheTtl, "MX_CACHE_TTL", email.DefaultMxCacheTtl,
	)
	env.assignInt(&opts.MxCacheSize, "MX_CACHE_SIZE", email.DefaultMxCacheSize)
	env.assignDuration(
		&opts.MxLookupTimeout,
		"MX_LOOKUP_TIMEOUT",
		email.DefaultMxLookupTimeout,
	)
	env.assign(&opts.MxCacheTableName, "MX_CACHE_TABLE_NAME", "")

	env.assignBool(&opts.SuppressionCheckEnabled, "SUPPRESSION_CHECK_ENABLED")
	env.assignInt(
		&opts.SuppressionCheckRate,
		"SUPPRESSION_CHECK_RATE",
		email.DefaultSuppressionCheckRate,
	)

	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("invalid environment variables:\n%w", err)
	}
	return &opts, nil
}

func (env *environment) assign(opt *string, varname, defaultValue string) {
	if value := strings.TrimSpace(env.getenv(varname)); value == "" {
		*opt = defaultValue
	} else {
		*opt = value
	}
}

func (env *environment) invalid(varname, value string, err error) {
	const errFmt = "  %s=%q: %w"
	env.errs = append(env.errs, fmt.Errorf(errFmt, varname, value, err))
}

// assignParsed sets *opt to defaultValue if varname is undefined, or else to
// the result of parse if it's positive.
func assignParsed[T int | int64 | time.Duration](
	env *environment,
	opt *T,
	varname string,
	defaultValue T,
	parse func(string) (T, error),
) {
	value := strings.TrimSpace(env.getenv(varname))
	if value == "" {
		*opt = defaultValue
	} else if parsed, err := parse(value); err != nil {
		env.invalid(varname, value, err)
	} else if parsed <= 0 {
		env.invalid(varname, value, errors.New("must be greater than zero"))
	} else {
		*opt = parsed
	}
}

func (env *environment) assignInt(opt *int, varname string, defaultValue int) {
	assignParsed(env, opt, varname, defaultValue, strconv.Atoi)
}

func (env *environment) assignInt64(
	opt *int64, varname string, defaultValue int64,
) {
	parse := func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}
	assignParsed(env, opt, varname, defaultValue, parse)
}

func (env *environment) assignDuration(
	opt *time.Duration, varname string, defaultValue time.Duration,
) {
	assignParsed(env, opt, varname, defaultValue, time.ParseDuration)
}

func (env *environment) assignBool(opt *bool, varname string) {
	value := strings.TrimSpace(env.getenv(varname))
	if value == "" {
		return
	} else if parsed, err := strconv.ParseBool(value); err != nil {
		env.invalid(varname, value, err)
	} else {
		*opt = parsed
	}
}

func (env *environment) assignList(
	opt *[]string, varname, defaultValue string,
) {
	var value string
	env.assign(&value, varname, defaultValue)

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*opt = append(*opt, item)
		}
	}
}
