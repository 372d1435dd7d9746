package openapi

// Spec represents an OpenAPI 3.1 specification document.
type Spec struct {
	OpenAPI    string               `json:"openapi"`
	Info       *Info                `json:"info"`
	Servers    []*Server            `json:"servers,omitempty"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components,omitempty"`
}

// NewSpec creates a Spec titled, described, and served as cfg says, with the
// shared error responses registered.
func NewSpec(cfg *Config, version string) *Spec {
	s := &Spec{
		OpenAPI: "3.1.0",
		Info: &Info{
			Title:       cfg.Title,
			Description: cfg.Description,
			Version:     version,
		},
		Components: NewComponents(),
		Paths:      make(map[string]*PathItem),
	}
	for _, url := range cfg.Servers {
		s.AddServer(url)
	}
	return s
}

// AddServer appends a server URL to the spec.
func (s *Spec) AddServer(url string) {
	s.Servers = append(s.Servers, &Server{URL: url})
}

// AddPaths registers every path item in paths, replacing existing entries.
func (s *Spec) AddPaths(paths map[string]*PathItem) {
	for p, item := range paths {
		s.Paths[p] = item
	}
}
