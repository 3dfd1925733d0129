package dialogue

import "strings"

// VariantKeys lists the canonical alternate-text slot names in .dlg column
// order. The first six are unnamed in the original format; the seventh holds
// the Malkavian clan rewrite of the line.
var VariantKeys = []string{
	"unknown01", "unknown02", "unknown03",
	"unknown04", "unknown05", "unknown06", "malkavian",
}

// Row is one dialogue line. It is a value type: copying a Row and replacing
// its pointer fields never mutates the original. Identity is the Index,
// unique within one file.
//
// Next is nil for NPC lines (serialized as '#') and names the NPC line the
// conversation jumps to for player replies. ParentLine is derived from file
// order, not authored; see [InferParents].
type Row struct {
	Index     int
	Male      string
	Female    string
	Next      *int
	Condition string
	Action    string

	Unknown01 string
	Unknown02 string
	Unknown03 string
	Unknown04 string
	Unknown05 string
	Unknown06 string
	Malkavian string

	ParentLine *int
}

// IsReply reports whether the row is a player reply. A row is a reply
// exactly when it has a jump target.
func (r Row) IsReply() bool { return r.Next != nil }

// IsEmptySeparator reports whether the row is a cosmetic spacer: an NPC
// line whose text, condition, action, and all variant slots are blank.
// Authors use such rows to visually group reply blocks in the raw file.
func (r Row) IsEmptySeparator() bool {
	if r.IsReply() {
		return false
	}
	for _, v := range []string{
		r.Male, r.Female, r.Condition, r.Action,
		r.Unknown01, r.Unknown02, r.Unknown03, r.Unknown04,
		r.Unknown05, r.Unknown06, r.Malkavian,
	} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Variants returns the non-empty alternate-text slots keyed by their
// canonical names. The returned map is freshly allocated.
func (r Row) Variants() map[string]string {
	out := make(map[string]string)
	for _, key := range VariantKeys {
		if v, _ := r.Variant(key); v != "" {
			out[key] = v
		}
	}
	return out
}

// AllVariants returns every alternate-text slot, including empty ones, keyed
// by canonical name. Serialization uses this form so the seven columns
// round-trip explicitly.
func (r Row) AllVariants() map[string]string {
	out := make(map[string]string, len(VariantKeys))
	for _, key := range VariantKeys {
		v, _ := r.Variant(key)
		out[key] = v
	}
	return out
}

// Variant returns the value of the named slot and whether the key is one of
// the canonical [VariantKeys].
func (r Row) Variant(key string) (string, bool) {
	switch key {
	case "unknown01":
		return r.Unknown01, true
	case "unknown02":
		return r.Unknown02, true
	case "unknown03":
		return r.Unknown03, true
	case "unknown04":
		return r.Unknown04, true
	case "unknown05":
		return r.Unknown05, true
	case "unknown06":
		return r.Unknown06, true
	case "malkavian":
		return r.Malkavian, true
	}
	return "", false
}

// SetVariant assigns the named slot. Returns ErrUnknownVariant for keys
// outside [VariantKeys].
func (r *Row) SetVariant(key, value string) error {
	switch key {
	case "unknown01":
		r.Unknown01 = value
	case "unknown02":
		r.Unknown02 = value
	case "unknown03":
		r.Unknown03 = value
	case "unknown04":
		r.Unknown04 = value
	case "unknown05":
		r.Unknown05 = value
	case "unknown06":
		r.Unknown06 = value
	case "malkavian":
		r.Malkavian = value
	default:
		return ErrUnknownVariant
	}
	return nil
}

// SetVariants assigns all seven slots from the map, blanking slots the map
// omits. Keys outside [VariantKeys] are ignored.
func (r *Row) SetVariants(variants map[string]string) {
	for _, key := range VariantKeys {
		_ = r.SetVariant(key, variants[key])
	}
}

// Clone returns a deep copy: the pointer fields are re-allocated so the
// copy shares no memory with the original.
func (r Row) Clone() Row {
	out := r
	out.Next = cloneRef(r.Next)
	out.ParentLine = cloneRef(r.ParentLine)
	return out
}

// Ref returns a pointer to v. Convenient for building Next and ParentLine
// values in literals.
func Ref(v int) *int { return &v }

func cloneRef(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CloneRows deep-copies a row slice.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// InferParents recomputes every ParentLine from file order: an NPC line
// clears its own ParentLine and becomes the current parent, and every reply
// is assigned the most recent NPC line above it (nil if none yet). Explicit
// values are overwritten. Mutates rows in place.
func InferParents(rows []Row) {
	var current *int
	for i := range rows {
		if rows[i].IsReply() {
			rows[i].ParentLine = cloneRef(current)
		} else {
			idx := rows[i].Index
			current = &idx
			rows[i].ParentLine = nil
		}
	}
}

// FillMissingParents assigns ParentLine by the same file-order scan as
// [InferParents] but only for replies whose ParentLine is nil. Explicit
// values survive. Mutates rows in place.
func FillMissingParents(rows []Row) {
	var current *int
	for i := range rows {
		if !rows[i].IsReply() {
			idx := rows[i].Index
			current = &idx
			continue
		}
		if rows[i].ParentLine == nil {
			rows[i].ParentLine = cloneRef(current)
		}
	}
}

// VisibleRows returns rows filtered for display: when showSeparators is
// false, empty separator rows are dropped. The returned slice shares row
// values with the input.
func VisibleRows(rows []Row, showSeparators bool) []Row {
	if showSeparators {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !r.IsEmptySeparator() {
			out = append(out, r)
		}
	}
	return out
}
