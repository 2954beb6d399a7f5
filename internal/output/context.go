package output

import "context"

type optionsKey struct{}

// options carries the printing flags through a context. Each With* call
// stores a modified copy, so parent contexts are unaffected.
type options struct {
	format    Format
	query     string
	yes       bool
	limit     int
	sortField string
	sortDesc  bool
	quiet     bool
}

func optionsFrom(ctx context.Context) options {
	if ctx == nil {
		return options{}
	}
	o, _ := ctx.Value(optionsKey{}).(options)
	return o
}

func with(ctx context.Context, set func(*options)) context.Context {
	o := optionsFrom(ctx)
	set(&o)
	return context.WithValue(ctx, optionsKey{}, o)
}

// WithFormat attaches the output format.
func WithFormat(ctx context.Context, format Format) context.Context {
	return with(ctx, func(o *options) { o.format = format })
}

// FormatFromContext returns the output format, FormatText when unset.
func FormatFromContext(ctx context.Context) Format {
	if f := optionsFrom(ctx).format; f != "" {
		return f
	}
	return FormatText
}

// WithQuery attaches a jq expression applied to JSON output.
func WithQuery(ctx context.Context, query string) context.Context {
	return with(ctx, func(o *options) { o.query = query })
}

func QueryFromContext(ctx context.Context) string { return optionsFrom(ctx).query }

// WithYes records --yes.
func WithYes(ctx context.Context, yes bool) context.Context {
	return with(ctx, func(o *options) { o.yes = yes })
}

func YesFromContext(ctx context.Context) bool { return optionsFrom(ctx).yes }

// WithLimit records --result-limit. Zero means unlimited.
func WithLimit(ctx context.Context, limit int) context.Context {
	return with(ctx, func(o *options) { o.limit = limit })
}

func LimitFromContext(ctx context.Context) int { return optionsFrom(ctx).limit }

// WithSort records --result-sort-by and --result-desc.
func WithSort(ctx context.Context, field string, desc bool) context.Context {
	return with(ctx, func(o *options) {
		o.sortField = field
		o.sortDesc = desc
	})
}

func SortFromContext(ctx context.Context) (field string, desc bool) {
	o := optionsFrom(ctx)
	return o.sortField, o.sortDesc
}

// WithQuiet records --quiet.
func WithQuiet(ctx context.Context, quiet bool) context.Context {
	return with(ctx, func(o *options) { o.quiet = quiet })
}

func QuietFromContext(ctx context.Context) bool { return optionsFrom(ctx).quiet }
