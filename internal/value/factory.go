package value

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// Factory builds transformers per field kind with caching. The cache key
// includes a hash of the settings that affect value shaping (decimal places
// and date format), since two fields of the same kind can format
// differently. The factory is safe for concurrent use.
type Factory struct {
	mu    sync.RWMutex
	cache map[string]Transformer
}

// NewFactory creates a transformer Factory.
func NewFactory() *Factory {
	return &Factory{cache: make(map[string]Transformer)}
}

// ForField returns the transformer for a field kind and its settings.
// Unknown kinds resolve to the identity transformer so that stale type
// registrations never break rendering.
func (f *Factory) ForField(kind field.Kind, settings field.Settings) Transformer {
	key := cacheKey(kind, settings)

	f.mu.RLock()
	t, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return t
	}

	t = build(kind, settings)

	f.mu.Lock()
	f.cache[key] = t
	f.mu.Unlock()
	return t
}

// cacheKey combines the kind with an xxhash of the shaping-relevant settings.
func cacheKey(kind field.Kind, settings field.Settings) string {
	h := xxhash.New()
	if settings.DecimalPlaces != nil {
		_, _ = h.WriteString("dp=" + strconv.Itoa(*settings.DecimalPlaces))
	}
	_, _ = h.WriteString("df=" + settings.DateFormat)
	return fmt.Sprintf("%s:%x", kind, h.Sum64())
}

func build(kind field.Kind, settings field.Settings) Transformer {
	switch kind {
	case field.KindString, field.KindText, field.KindEmail, field.KindURL,
		field.KindSlug, field.KindColor, field.KindSelect:
		return stringTransformer{}
	case field.KindInteger:
		return integerTransformer{}
	case field.KindFloat:
		places := -1
		if settings.DecimalPlaces != nil {
			places = *settings.DecimalPlaces
		}
		return floatTransformer{decimalPlaces: places}
	case field.KindBoolean:
		return booleanTransformer{}
	case field.KindDate:
		return dateTransformer{format: settings.DateFormat}
	case field.KindDatetime:
		return datetimeTransformer{format: settings.DateFormat}
	case field.KindJSON:
		return jsonTransformer{}
	case field.KindMultiselect:
		return arrayTransformer{}
	case field.KindReference:
		return stringTransformer{}
	default:
		return identityTransformer{}
	}
}
