package profile

import "fmt"

// builtin is the static set of known sites, in listing order
var builtin = []Profile{
	{
		Name:      "go",
		Whitelist: []string{"https://go.dev/doc/", "https://go.dev/ref/", "https://go.dev/blog/"},
	},
	{
		Name:      "python",
		Whitelist: []string{"https://docs.python.org/3/"},
		Blacklist: []string{"https://docs.python.org/3/whatsnew/changelog.html", "https://docs.python.org/3/genindex"},
	},
	{
		Name:      "rust",
		Whitelist: []string{"https://doc.rust-lang.org/book/", "https://doc.rust-lang.org/std/", "https://doc.rust-lang.org/reference/"},
		Blacklist: []string{"https://doc.rust-lang.org/std/all.html", "https://doc.rust-lang.org/book/print.html"},
	},
	{
		Name:      "mdn",
		Whitelist: []string{"https://developer.mozilla.org/en-US/docs/Web/"},
		Blacklist: []string{"https://developer.mozilla.org/en-US/docs/Web/API/", "https://developer.mozilla.org/en-US/docs/Web/Accessibility/"},
	},
	{
		Name:      "sqlite",
		Whitelist: []string{"https://www.sqlite.org/"},
		Blacklist: []string{"https://www.sqlite.org/src/", "https://www.sqlite.org/forum/", "https://www.sqlite.org/cgi/"},
	},
	{
		Name:      "postgres",
		Whitelist: []string{"https://www.postgresql.org/docs/current/"},
		Blacklist: []string{"https://www.postgresql.org/docs/current/release-"},
	},
}

// Registry maps profile names to profiles. It is built once at startup and
// only read afterwards.
type Registry struct {
	order    []string
	profiles map[string]Profile
}

// NewRegistry creates a registry holding the builtin profiles
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range builtin {
		r.add(p)
	}
	return r
}

// Register adds or replaces a profile. Replacing keeps the original listing position.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	r.add(p)
	return nil
}

func (r *Registry) add(p Profile) {
	if _, exists := r.profiles[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.profiles[p.Name] = p
}

// Lookup returns the named profile
func (r *Registry) Lookup(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
	}
	return p, nil
}

// Names returns profile names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
