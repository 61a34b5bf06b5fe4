package gateway

// Typed accessors for record fields. Drivers return integers in whichever
// width the column uses, so the numeric accessors normalise.

// String returns a text field.
func (r Record) String(key string) (string, bool) {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns an integer field regardless of column width.
func (r Record) Int64(key string) (int64, bool) {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Int returns an integer field as int.
func (r Record) Int(key string) (int, bool) {
	n, ok := r.Int64(key)
	return int(n), ok
}

// Bool returns a boolean field.
func (r Record) Bool(key string) (bool, bool) {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
