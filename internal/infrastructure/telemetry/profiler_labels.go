package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelOperation    = "operation"
	ProfilingLabelTenantID     = "tenant_id"
	ProfilingLabelDocumentType = "document_type"
	ProfilingLabelRoute        = "route"
)

// MaxLabelValueLength bounds label values to keep profile cardinality sane.
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels.
var highCardinalityLabels = map[string]bool{
	"request_id":     true,
	"draft_id":       true,
	"invoice_id":     true,
	"account_id":     true,
	"fiscal_number":  true,
	"trace_id":       true,
	"idempotency_id": true,
	"batch_id":       true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its goroutine.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// OperationLabels labels a settlement operation, optionally scoped to a
// tenant and document type.
func OperationLabels(operation, tenantID, documentType string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation:    operation,
		ProfilingLabelTenantID:     tenantID,
		ProfilingLabelDocumentType: documentType,
	}
}

// sanitizeLabels returns key/value pairs sorted by sanitized key, with empty,
// high-cardinality and malformed entries removed and long values truncated.
// When two keys sanitize to the same name the lexically first raw key wins.
func sanitizeLabels(labels map[string]string) []string {
	raw := make([]string, 0, len(labels))
	for k := range labels {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	clean := make(map[string]string, len(labels))
	for _, key := range raw {
		value := labels[key]
		k := sanitizeLabelKey(key)
		if value == "" || k == "" || highCardinalityLabels[k] {
			continue
		}
		if _, seen := clean[k]; seen {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean[k] = value
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, clean[k])
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(key))
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
