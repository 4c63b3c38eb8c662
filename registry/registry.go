package registry

// ServiceInstance is one reachable gateway. Addr is its base URL, e.g.
// "http://10.0.0.3:8801"; Weight is used by weighted load balancing.
type ServiceInstance struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight"`
	Version string `json:"version"`
}

type Registry interface {
	Register(serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	Watch(serviceName string) <-chan []ServiceInstance
}
