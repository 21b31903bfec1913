package flake

// Scheme describes a flake reference scheme that switcher knows how to pin.
type Scheme struct {
	Name string
	// PinKey is the query parameter holding the pinned commit.
	PinKey string
}

var schemes = map[string]Scheme{
	"github":    {Name: "github", PinKey: "ref"},
	"git+https": {Name: "git+https", PinKey: "rev"},
	"git+http":  {Name: "git+http", PinKey: "rev"},
	"git+ssh":   {Name: "git+ssh", PinKey: "rev"},
	"git+file":  {Name: "git+file", PinKey: "rev"},
}

// LookupScheme returns the pinning rules for a scheme name.
func LookupScheme(name string) (Scheme, bool) {
	s, ok := schemes[name]
	return s, ok
}
