package xlbind

import (
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
)

// Default characters used by header refinement.
const (
	DefaultIgnoredNameChars  = "-_.,:;'\""
	DefaultTruncateNameChars = "([{<"
)

// TrailingRowPolicy decides what Put does with rows below the written records.
type TrailingRowPolicy int

const (
	// TrailingClear clears every cell of rows below the last written record.
	TrailingClear TrailingRowPolicy = iota
	// TrailingKeep leaves rows below the last written record untouched.
	TrailingKeep
)

// String returns the policy name.
func (p TrailingRowPolicy) String() string {
	if p == TrailingKeep {
		return "keep"
	}
	return "clear"
}

// Options holds configuration for a Session.
type Options struct {
	headerless        bool
	headerRow         int // -1: first non-blank row
	maxErrorRows      int // < 0: unlimited
	tracking          bool
	skipBlankRows     bool
	trimSpaces        bool
	ignoredNameChars  string
	truncateNameChars string
	defaultResolver   string
	resolverFactories map[string]ResolverFactory
	typeFormats       map[reflect.Type]Format
	trailingRows      TrailingRowPolicy
	rowListeners      []RowListener
	logger            logrus.FieldLogger
	registry          *Registry
}

func defaultOptions() *Options {
	return &Options{
		headerRow:         -1,
		maxErrorRows:      10,
		tracking:          true,
		skipBlankRows:     true,
		ignoredNameChars:  DefaultIgnoredNameChars,
		truncateNameChars: DefaultTruncateNameChars,
		typeFormats: map[reflect.Type]Format{
			timeType: {Builtin: 22},
		},
		trailingRows: TrailingClear,
	}
}

// Option configures a Session.
type Option func(*Options)

// WithHeaderless declares that sheets have no header row. Columns bind only
// through explicit indexes and resolvers, and data starts at the first row.
func WithHeaderless() Option {
	return func(o *Options) { o.headerless = true }
}

// WithHeaderRow sets the 0-based header row (default: first non-blank row).
func WithHeaderRow(row int) Option {
	return func(o *Options) { o.headerRow = row }
}

// WithMaxErrorRows sets how many failed rows a sheet scan tolerates before it
// stops (default: 10). A negative value never stops.
func WithMaxErrorRows(n int) Option {
	return func(o *Options) { o.maxErrorRows = n }
}

// WithTracking controls whether read records are remembered for PutTracked (default: true).
func WithTracking(track bool) Option {
	return func(o *Options) { o.tracking = track }
}

// WithSkipBlankRows controls whether rows without any value are skipped on read (default: true).
func WithSkipBlankRows(skip bool) Option {
	return func(o *Options) { o.skipBlankRows = skip }
}

// WithTrimSpaces trims string cell values on read; whitespace-only cells read as blank.
func WithTrimSpaces(trim bool) Option {
	return func(o *Options) { o.trimSpaces = trim }
}

// WithIgnoredNameChars sets the characters header refinement removes.
func WithIgnoredNameChars(chars string) Option {
	return func(o *Options) { o.ignoredNameChars = chars }
}

// WithTruncateNameChars sets the characters header refinement truncates at.
func WithTruncateNameChars(chars string) Option {
	return func(o *Options) { o.truncateNameChars = chars }
}

// WithDefaultResolver offers headers nothing else matched to the named resolver.
func WithDefaultResolver(name string) Option {
	return func(o *Options) { o.defaultResolver = name }
}

// WithResolverFactory registers a resolver factory under a stable identifier.
func WithResolverFactory(name string, factory ResolverFactory) Option {
	return func(o *Options) {
		if o.resolverFactories == nil {
			o.resolverFactories = make(map[string]ResolverFactory)
		}
		o.resolverFactories[name] = factory
	}
}

// WithTypeFormat sets the write format for every field whose type matches
// sample's and that declares no format of its own. The zero Format removes
// a default.
func WithTypeFormat(sample any, format Format) Option {
	return func(o *Options) {
		t := baseType(reflect.TypeOf(sample))
		if t == nil {
			return
		}
		if format.IsZero() {
			delete(o.typeFormats, t)
			return
		}
		o.typeFormats[t] = format
	}
}

// WithDateFormat is shorthand for WithTypeFormat(time.Time{}, Format{Custom: code}).
func WithDateFormat(code string) Option {
	return WithTypeFormat(time.Time{}, Format{Custom: code})
}

// WithTrailingRows sets what Put does with rows below the written records (default: TrailingClear).
func WithTrailingRows(policy TrailingRowPolicy) Option {
	return func(o *Options) { o.trailingRows = policy }
}

// WithRowListener adds a listener notified before and after each row.
func WithRowListener(listener RowListener) Option {
	return func(o *Options) { o.rowListeners = append(o.rowListeners, listener) }
}

// WithLogger sets the logger (default: logrus.StandardLogger()).
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithRegistry shares a binding registry between sessions.
func WithRegistry(reg *Registry) Option {
	return func(o *Options) { o.registry = reg }
}
