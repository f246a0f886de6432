package logicclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nitrogenlogic/logicclient/kvp"
)

// Export is an exported parameter as listed by lstk.
type Export struct {
	ObjID     int
	Index     int
	Type      ParamType
	Value     any
	Min       any
	Max       any
	Default   any
	ObjName   string
	ParamName string
	HideInUI  bool
	ReadOnly  bool
}

// ParseExport parses one lstk key-value line.
func ParseExport(line string) (Export, error) {
	pairs := kvp.ParseLine(line)

	e := Export{
		ObjID:     int(parseIntPrefix(pairs.Value("objid"))),
		Index:     int(parseIntPrefix(pairs.Value("index"))),
		Type:      ParamType(pairs.Value("type")),
		ObjName:   pairs.Value("obj_name"),
		ParamName: pairs.Value("param_name"),
		HideInUI:  pairs.Value("hide_in_ui") == "true",
		ReadOnly:  pairs.Value("read_only") == "true",
	}

	fields := []struct {
		key string
		dst *any
	}{
		{"value", &e.Value},
		{"min", &e.Min},
		{"max", &e.Max},
		{"def", &e.Default},
	}
	for _, f := range fields {
		v, err := ConvertValue(pairs.Value(f.key), e.Type)
		if err != nil {
			return Export{}, fmt.Errorf("export %d:%d %s: %w", e.ObjID, e.Index, f.key, err)
		}
		*f.dst = v
	}

	return e, nil
}

// ParseExports parses every line of an lstk response.
func ParseExports(lines []string) ([]Export, error) {
	exports := make([]Export, 0, len(lines))
	for _, line := range lines {
		e, err := ParseExport(line)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, nil
}

// String formats the export as objid,index,type,value (obj: param).
func (e Export) String() string {
	return fmt.Sprintf("%d,%d,%s,%s (%s: %s)", e.ObjID, e.Index, e.Type, FormatValue(e.Value), e.ObjName, e.ParamName)
}

// KVP formats the export as a key-value line that ParseExport accepts.
func (e Export) KVP() string {
	var b strings.Builder
	b.WriteString("objid=" + strconv.Itoa(e.ObjID))
	b.WriteString(" index=" + strconv.Itoa(e.Index))
	b.WriteString(" type=" + kvp.Quote(string(e.Type)))
	b.WriteString(" read_only=" + strconv.FormatBool(e.ReadOnly))
	b.WriteString(" hide_in_ui=" + strconv.FormatBool(e.HideInUI))
	b.WriteString(" min=" + formatKVPValue(e.Min))
	b.WriteString(" max=" + formatKVPValue(e.Max))
	b.WriteString(" def=" + formatKVPValue(e.Default))
	b.WriteString(" obj_name=" + kvp.Quote(e.ObjName))
	b.WriteString(" param_name=" + kvp.Quote(e.ParamName))
	b.WriteString(" value=" + formatKVPValue(e.Value))
	return b.String()
}

// formatKVPValue quotes strings twice over so that the extra Unescape pass
// ConvertValue applies to string values returns the input.
func formatKVPValue(v any) string {
	if s, ok := v.(string); ok {
		return kvp.Quote(kvp.Quote(s))
	}
	return FormatValue(v)
}
