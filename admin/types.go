package admin

type Namespace struct {
	Version string `json:"version,omitempty"`
	Name    string `json:"name"`
	Created int64  `json:"created,omitempty"`
	Updated int64  `json:"updated,omitempty"`
}

type ServiceEndpoint struct {
	Name     string         `json:"name"`
	Hostname string         `json:"hostname"`
	Config   map[string]any `json:"config,omitempty"`
	Domain   string         `json:"domain,omitempty"`
}

type Service struct {
	Version   string            `json:"version,omitempty"`
	Namespace string            `json:"namespace"`
	Name      string            `json:"name"`
	Kind      string            `json:"kind,omitempty"`
	Endpoints []ServiceEndpoint `json:"endpoints,omitempty"`
	Created   int64             `json:"created,omitempty"`
	Updated   int64             `json:"updated,omitempty"`
}

type EndpointStatus struct {
	State       string `json:"state"`
	StateDetail string `json:"stateDetail,omitempty"`
	ID          string `json:"id,omitempty"`
	IP          string `json:"ip,omitempty"`
	Port        int    `json:"port,omitempty"`
}

type Endpoint struct {
	Version   string            `json:"version,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Service   string            `json:"service,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Status    *EndpointStatus   `json:"status,omitempty"`
	Created   int64             `json:"created,omitempty"`
	Updated   int64             `json:"updated,omitempty"`
}

// Overview is what the console's landing page shows for one namespace.
type Overview struct {
	Namespaces []Namespace
	Services   []Service
	Endpoints  []Endpoint
}
