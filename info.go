package logicclient

import (
	"strconv"
	"strings"

	"github.com/nitrogenlogic/logicclient/kvp"
)

// Revision is a two-part graph revision.
type Revision struct {
	Major int
	Minor int
}

func (r Revision) String() string {
	return strconv.Itoa(r.Major) + "." + strconv.Itoa(r.Minor)
}

// GraphInfo describes the running logic graph as reported by inf.
type GraphInfo struct {
	ID          int
	NumObjs     int
	Period      int
	Avg         int
	Revision    Revision
	HasRevision bool

	// Fields holds every pair from the response as received, including the
	// ones coerced above and any the client does not know about.
	Fields kvp.Pairs
}

// ParseInfo parses the message of an inf response.
func ParseInfo(message string) GraphInfo {
	pairs := kvp.ParseLine(message)

	info := GraphInfo{
		ID:      int(parseIntPrefix(pairs.Value("id"))),
		NumObjs: int(parseIntPrefix(pairs.Value("numobjs"))),
		Period:  int(parseIntPrefix(pairs.Value("period"))),
		Avg:     int(parseIntPrefix(pairs.Value("avg"))),
		Fields:  pairs,
	}

	if rev, ok := pairs.Get("revision"); ok {
		major, minor, _ := strings.Cut(rev, ".")
		info.Revision = Revision{
			Major: int(parseIntPrefix(major)),
			Minor: int(parseIntPrefix(minor)),
		}
		info.HasRevision = true
	}

	return info
}

// Get returns a raw field from the response.
func (i GraphInfo) Get(key string) (string, bool) {
	return i.Fields.Get(key)
}
